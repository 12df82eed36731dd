// Package seal encrypts secret values before the file store writes them to
// disk.
//
// Two sealers are provided: Passphrase, an age scrypt envelope usable on any
// platform, and DPAPI, which binds the ciphertext to the current Windows user.
package seal

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// Sealer converts plaintext into an opaque blob and back. Implementations
// must be safe for concurrent use.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

var (
	ErrEmptyPassphrase = errors.New("passphrase is empty")
	ErrUnsupported     = errors.New("sealer not supported on this platform")
)

// DefaultWorkFactor is the scrypt log2(N) used when none is configured.
const DefaultWorkFactor = 18

// maxAcceptedWorkFactor bounds what Open will spend on a file written by a
// different configuration.
const maxAcceptedWorkFactor = 22

// Passphrase seals values with an age scrypt recipient derived from a
// passphrase. Every Seal draws a fresh salt, so equal plaintexts produce
// different blobs.
type Passphrase struct {
	passphrase string
	workFactor int
}

var _ Sealer = (*Passphrase)(nil)

// NewPassphrase returns a passphrase sealer. A workFactor of zero selects
// DefaultWorkFactor.
func NewPassphrase(passphrase string, workFactor int) (*Passphrase, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if workFactor == 0 {
		workFactor = DefaultWorkFactor
	}
	if workFactor < 1 || workFactor > 30 {
		return nil, fmt.Errorf("scrypt work factor %d out of range 1-30", workFactor)
	}
	return &Passphrase{passphrase: passphrase, workFactor: workFactor}, nil
}

func (p *Passphrase) Seal(plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(p.passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(p.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Passphrase) Open(sealed []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(p.passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	identity.SetMaxWorkFactor(max(p.workFactor, maxAcceptedWorkFactor))

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}
