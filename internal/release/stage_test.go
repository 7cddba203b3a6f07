package release

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T, passphrase []byte) (string, *openpgp.Entity) {
	t.Helper()
	entity, err := openpgp.NewEntity("Test Author", "", "author@example.com", nil)
	require.NoError(t, err)

	if passphrase != nil {
		require.NoError(t, entity.EncryptPrivateKeys(passphrase, nil))
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, "PGP PRIVATE KEY BLOCK", nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivateWithoutSigning(w, nil))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "signing.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path, entity
}

func TestStageWithSignature(t *testing.T) {
	keyPath, entity := writeTestKey(t, nil)
	signer, err := LoadSigner(keyPath, nil)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint), signer.Fingerprint())

	root := t.TempDir()
	artifact := filepath.Join(root, "build", "main.pdf")
	writeFile(t, artifact, fakePDF)

	staged, err := Stage(StageOptions{
		Artifact:    artifact,
		DistDir:     filepath.Join(root, "dist"),
		StagingBase: filepath.Join(root, ".texbuilder"),
		Name:        "thesis",
		Tag:         "v1.0.0",
		Signer:      signer,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "dist", "thesis-v1.0.0.pdf.asc"), staged.Signature)
	assert.Equal(t, int64(len(fakePDF)), staged.Size)

	pdf, err := os.Open(staged.PDF)
	require.NoError(t, err)
	defer pdf.Close()
	sig, err := os.Open(staged.Signature)
	require.NoError(t, err)
	defer sig.Close()

	signerEntity, err := openpgp.CheckArmoredDetachedSignature(openpgp.EntityList{entity}, pdf, sig, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PrimaryKey.KeyId, signerEntity.PrimaryKey.KeyId)
}

func TestLoadSignerEncryptedKey(t *testing.T) {
	keyPath, _ := writeTestKey(t, []byte("correct horse"))

	_, err := LoadSigner(keyPath, nil)
	require.Error(t, err)

	_, err = LoadSigner(keyPath, []byte("wrong"))
	require.Error(t, err)

	s, err := LoadSigner(keyPath, []byte("correct horse"))
	require.NoError(t, err)
	assert.NotEmpty(t, s.Fingerprint())
}

func TestStageRejectsEmptyArtifact(t *testing.T) {
	root := t.TempDir()
	artifact := filepath.Join(root, "main.pdf")
	writeFile(t, artifact, "")

	_, err := Stage(StageOptions{Artifact: artifact, DistDir: filepath.Join(root, "dist"), StagingBase: root, Name: "x", Tag: "v1.0.0"})
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}
