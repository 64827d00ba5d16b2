package scram

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

// serverFirstMessage builds a plausible server-first-message for a client
// nonce, exercising the same wire format real brokers send.
func serverFirstMessage(clientNonce, salt string, iterations int) []byte {
	return []byte(fmt.Sprintf("r=%sserver-extra,s=%s,i=%d", clientNonce, salt, iterations))
}

func TestInitialDataFormat(t *testing.T) {
	a := New("alice", "secret")
	data, err := a.InitialData()
	if err != nil {
		t.Fatalf("InitialData: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("n,,n=alice,r=")) {
		t.Fatalf("unexpected client-first-message: %q", data)
	}
	if a.clientNonce == "" {
		t.Fatal("expected a client nonce to be recorded")
	}
}

func TestHandleChallengeProducesValidProof(t *testing.T) {
	a := New("alice", "secret")
	if _, err := a.InitialData(); err != nil {
		t.Fatalf("InitialData: %v", err)
	}

	salt := base64.StdEncoding.EncodeToString([]byte("pretend-salt"))
	challenge := serverFirstMessage(a.clientNonce, salt, 4096)

	final, err := a.HandleChallenge(challenge, 0x18)
	if err != nil {
		t.Fatalf("HandleChallenge: %v", err)
	}

	attrs := parseAttributes(string(final))
	if attrs["c"] != "biws" {
		t.Fatalf("expected channel-binding attribute c=biws, got %q", attrs["c"])
	}
	if attrs["r"] != a.serverNonce {
		t.Fatalf("final message nonce %q does not echo server nonce %q", attrs["r"], a.serverNonce)
	}

	// Recompute the expected proof the way a server would, to confirm the
	// client derives the same ClientProof from the same inputs.
	saltedPassword := pbkdf2.Key([]byte("secret"), []byte("pretend-salt"), 4096, sha256.Size, sha256.New)
	clientKey := hmacSum(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	authMsg := fmt.Sprintf("n=alice,r=%s,%s,c=biws,r=%s", a.clientNonce, challenge, a.serverNonce)
	clientSignature := hmacSum(storedKey[:], []byte(authMsg))
	wantProof := make([]byte, len(clientKey))
	for i := range wantProof {
		wantProof[i] = clientKey[i] ^ clientSignature[i]
	}
	wantProofB64 := base64.StdEncoding.EncodeToString(wantProof)

	if attrs["p"] != wantProofB64 {
		t.Fatalf("proof mismatch: got %q want %q", attrs["p"], wantProofB64)
	}

	if err := a.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestHandleChallengeRejectsMismatchedNonce(t *testing.T) {
	a := New("alice", "secret")
	if _, err := a.InitialData(); err != nil {
		t.Fatalf("InitialData: %v", err)
	}

	salt := base64.StdEncoding.EncodeToString([]byte("salt"))
	challenge := []byte(fmt.Sprintf("r=not-the-client-nonce,s=%s,i=4096", salt))

	if _, err := a.HandleChallenge(challenge, 0x18); err == nil {
		t.Fatal("expected an error for a server nonce that doesn't extend the client nonce")
	}
}

func TestHandleChallengeRejectsMissingSalt(t *testing.T) {
	a := New("alice", "secret")
	if _, err := a.InitialData(); err != nil {
		t.Fatalf("InitialData: %v", err)
	}
	challenge := []byte(fmt.Sprintf("r=%sx,i=4096", a.clientNonce))
	if _, err := a.HandleChallenge(challenge, 0x18); err == nil {
		t.Fatal("expected an error for a missing salt attribute")
	}
}

func TestMethodName(t *testing.T) {
	if got := New("a", "b").Method(); got != "SCRAM-SHA-256" {
		t.Fatalf("Method() = %q, want SCRAM-SHA-256", got)
	}
}
