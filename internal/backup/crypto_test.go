package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")
	dec := filepath.Join(dir, "restored.db")

	want := []byte("sqlite pretend payload")
	if err := os.WriteFile(src, want, 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := EncryptFile(src, enc, "correct horse"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	ciphertext, err := os.ReadFile(enc)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	if bytes.Contains(ciphertext, want) {
		t.Fatal("ciphertext leaks plaintext")
	}

	if err := DecryptFile(enc, dec, "correct horse"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	got, err := os.ReadFile(dec)
	if err != nil {
		t.Fatalf("read decrypted: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q want %q", got, want)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")

	if err := os.WriteFile(src, []byte("data"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := EncryptFile(src, enc, "right"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if err := DecryptFile(enc, filepath.Join(dir, "out"), "wrong"); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
}

func TestDecryptTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	enc := filepath.Join(dir, "short.enc")
	if err := os.WriteFile(enc, []byte("tiny"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := DecryptFile(enc, filepath.Join(dir, "out"), "pw"); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestEncryptFreshSaltPerFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	if err := os.WriteFile(src, []byte("data"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	enc1 := filepath.Join(dir, "a.enc")
	enc2 := filepath.Join(dir, "b.enc")
	if err := EncryptFile(src, enc1, "pw"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := EncryptFile(src, enc2, "pw"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	d1, _ := os.ReadFile(enc1)
	d2, _ := os.ReadFile(enc2)
	if bytes.Equal(d1, d2) {
		t.Error("expected distinct salt/nonce per encrypted file")
	}
}
