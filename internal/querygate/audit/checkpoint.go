package audit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint pins the chain head at a point in time.
type Checkpoint struct {
	ChainIndex int       `json:"chain_index"`
	HeadHash   string    `json:"head_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// SignedCheckpoint is a Checkpoint with a base64 ECDSA P-256 signature over
// its canonical form.
type SignedCheckpoint struct {
	Checkpoint Checkpoint `json:"checkpoint"`
	Signature  string     `json:"signature"`
}

// WriteCheckpoint signs head with the PEM private key at keyPath and writes
// it under dir. It returns the path written.
func WriteCheckpoint(dir string, head ChainState, keyPath string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("checkpoint dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	cp := Checkpoint{ChainIndex: head.LastChainIndex, HeadHash: head.LastHeadHash, CreatedAt: time.Now().UTC()}
	key, err := readPrivateKey(keyPath)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(canonicalCheckpoint(cp)))
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign checkpoint: %w", err)
	}

	b, err := json.Marshal(SignedCheckpoint{Checkpoint: cp, Signature: base64.StdEncoding.EncodeToString(sig)})
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}
	name := fmt.Sprintf("checkpoint-%s-%d.json", cp.CreatedAt.Format("20060102-150405"), cp.ChainIndex)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	return path, nil
}

// VerifyCheckpoint reports whether the checkpoint at path names headHash and
// carries a valid signature for the PEM public key at pubPath.
func VerifyCheckpoint(path, pubPath, headHash string) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read checkpoint: %w", err)
	}
	var sc SignedCheckpoint
	if err := json.Unmarshal(b, &sc); err != nil {
		return false, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	if sc.Checkpoint.HeadHash != headHash {
		return false, nil
	}
	sig, err := base64.StdEncoding.DecodeString(sc.Signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	pub, err := readPublicKey(pubPath)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256([]byte(canonicalCheckpoint(sc.Checkpoint)))
	return ecdsa.VerifyASN1(pub, digest[:], sig), nil
}

func canonicalCheckpoint(cp Checkpoint) string {
	return fmt.Sprintf(`{"chain_index":%d,"created_at":%q,"head_hash":%q}`,
		cp.ChainIndex, cp.CreatedAt.UTC().Format(time.RFC3339), cp.HeadHash)
}

func readPEM(path, what string) (*pem.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s key: %w", what, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM for %s key", what)
	}
	return block, nil
}

func readPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	block, err := readPEM(path, "private")
	if err != nil {
		return nil, err
	}
	var key *ecdsa.PrivateKey
	if block.Type == "EC PRIVATE KEY" {
		key, err = x509.ParseECPrivateKey(block.Bytes)
	} else {
		var parsed any
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		if err == nil {
			var ok bool
			if key, ok = parsed.(*ecdsa.PrivateKey); !ok {
				return nil, fmt.Errorf("not an ECDSA private key")
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("unsupported curve: want P-256")
	}
	return key, nil
}

func readPublicKey(path string) (*ecdsa.PublicKey, error) {
	block, err := readPEM(path, "public")
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an ECDSA public key")
	}
	return pub, nil
}
