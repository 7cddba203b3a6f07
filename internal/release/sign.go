package release

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces armored detached OpenPGP signatures.
type Signer struct {
	entity *openpgp.Entity
}

// LoadSigner reads an armored private key and unlocks it with passphrase
// when the key is encrypted.
func LoadSigner(keyPath string, passphrase []byte) (*Signer, error) {
	f, err := os.Open(keyPath) // #nosec G304 -- path comes from project configuration
	if err != nil {
		return nil, fmt.Errorf("open signing key: %w", err)
	}
	defer func() { _ = f.Close() }()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	var entity *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil {
			entity = e
			break
		}
	}
	if entity == nil {
		return nil, errors.New("signing key file holds no private key")
	}

	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return nil, errors.New("signing key is encrypted and no passphrase was provided")
		}
		if err := entity.DecryptPrivateKeys(passphrase); err != nil {
			return nil, fmt.Errorf("unlock signing key: %w", err)
		}
	}
	return &Signer{entity: entity}, nil
}

// Fingerprint returns the primary key fingerprint in upper-case hex.
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

// Sign writes an armored detached signature of data to w.
func (s *Signer) Sign(w io.Writer, data io.Reader) error {
	return openpgp.ArmoredDetachSign(w, s.entity, data, nil)
}
