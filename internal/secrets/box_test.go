package secrets

import (
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	box, err := NewBox(key)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	for _, plaintext := range []string{"", "hunter2", "multi\nline\nsecret", "ünïcödé"} {
		ciphertext, err := box.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if ciphertext == plaintext && plaintext != "" {
			t.Fatalf("ciphertext equals plaintext for %q", plaintext)
		}
		got, err := box.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Fatalf("round trip: got %q want %q", got, plaintext)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	key, _ := GenerateKey()
	box, _ := NewBox(key)
	a, err := box.Encrypt("same value")
	if err != nil {
		t.Fatal(err)
	}
	b, err := box.Encrypt("same value")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ (random nonce)")
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	keyA, _ := GenerateKey()
	keyB, _ := GenerateKey()
	boxA, _ := NewBox(keyA)
	boxB, _ := NewBox(keyB)

	ciphertext, err := boxA.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := boxB.Decrypt(ciphertext); err == nil {
		t.Fatal("decrypt with the wrong key must fail")
	}
}

func TestEmptyKeyReturnsErrNoKey(t *testing.T) {
	box, err := NewBox("")
	if err != nil {
		t.Fatalf("NewBox with empty key: %v", err)
	}
	if _, err := box.Encrypt("x"); err != ErrNoKey {
		t.Fatalf("Encrypt error = %v, want ErrNoKey", err)
	}
	if _, err := box.Decrypt("x"); err != ErrNoKey {
		t.Fatalf("Decrypt error = %v, want ErrNoKey", err)
	}
}

func TestNewBoxRejectsBadKeys(t *testing.T) {
	if _, err := NewBox("!!!not-base64!!!"); err == nil {
		t.Fatal("NewBox accepted non-base64 key")
	}
	if _, err := NewBox("c2hvcnQ="); err == nil {
		t.Fatal("NewBox accepted a short key")
	}
}
