package release

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

// StageOptions describes where a release artifact goes.
type StageOptions struct {
	Artifact    string // built PDF
	DistDir     string
	StagingBase string // parent of the ephemeral staging directory
	Name        string // project name
	Tag         string
	Signer      *Signer // optional
}

// Staged lists the files placed in the dist directory.
type Staged struct {
	PDF       string `json:"pdf"`
	Checksum  string `json:"checksum"`
	Signature string `json:"signature,omitempty"`
	SHA256    string `json:"sha256"`
	Size      int64  `json:"size"`
}

// Stage copies the artifact to <dist>/<name>-<tag>.pdf together with a
// .sha256 file and, with a signer, an armored .asc signature. Files are
// prepared in a staging directory first so dist never holds a partial set.
func Stage(opts StageOptions) (*Staged, error) {
	ws := workspace.NewStagingManager(opts.StagingBase)
	if err := ws.Create(); err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to remove staging directory", logfields.Error(err))
		}
	}()

	base := fmt.Sprintf("%s-%s.pdf", opts.Name, opts.Tag)
	pdf := filepath.Join(ws.GetPath(), base)
	sum, size, err := copyAndHash(opts.Artifact, pdf)
	if err != nil {
		return nil, fmt.Errorf("copy artifact: %w", err)
	}
	if size == 0 {
		return nil, fmt.Errorf("artifact %s is empty", opts.Artifact)
	}

	files := []string{pdf, pdf + ".sha256"}
	// #nosec G306 -- checksums are public
	if err := os.WriteFile(files[1], []byte(fmt.Sprintf("%s  %s\n", sum, base)), 0o644); err != nil {
		return nil, fmt.Errorf("write checksum: %w", err)
	}
	if opts.Signer != nil {
		if err := signFile(opts.Signer, pdf, pdf+".asc"); err != nil {
			return nil, fmt.Errorf("sign artifact: %w", err)
		}
		files = append(files, pdf+".asc")
	}

	if err := os.MkdirAll(opts.DistDir, 0o750); err != nil {
		return nil, err
	}
	staged := &Staged{SHA256: sum, Size: size}
	for _, f := range files {
		dst := filepath.Join(opts.DistDir, filepath.Base(f))
		if err := moveFile(f, dst); err != nil {
			return nil, err
		}
		switch filepath.Ext(f) {
		case ".pdf":
			staged.PDF = dst
		case ".sha256":
			staged.Checksum = dst
		case ".asc":
			staged.Signature = dst
		}
	}
	slog.Info("Staged release artifact", logfields.Tag(opts.Tag), logfields.Path(staged.PDF), logfields.Count(len(files)))
	return staged, nil
}

func copyAndHash(src, dst string) (string, int64, error) {
	in, err := os.Open(src) // #nosec G304 -- build artifact path
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 -- staging path
	if err != nil {
		return "", 0, err
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func signFile(s *Signer, path, sigPath string) error {
	in, err := os.Open(path) // #nosec G304 -- staging path
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(sigPath) // #nosec G304 -- staging path
	if err != nil {
		return err
	}
	if err := s.Sign(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// moveFile renames src to dst, copying when they are on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if _, _, err := copyAndHash(src, dst); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(src), err)
	}
	return os.Remove(src)
}
