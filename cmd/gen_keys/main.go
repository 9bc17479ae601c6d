package main

import (
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/kem_mlkem"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/sirupsen/logrus"
)

var (
	logger = logrus.New()
)

// Prints a fresh identity key pair and an ML-KEM pre-key pair in hex, ready for a .env file
func main() {
	identity, err := key_ed25519.GeneratePair()
	if err != nil {
		logger.Fatalf("Failed to generate identity key: %v", err)
	}
	kyber, err := kem_mlkem.GeneratePair()
	if err != nil {
		logger.Fatalf("Failed to generate kyber pre-key: %v", err)
	}

	fmt.Printf("IDENTITY_PRIVATE=%x\n", []byte(identity.Priv))
	fmt.Printf("IDENTITY_PUBLIC=%x\n", []byte(identity.Pub))
	fmt.Printf("KYBER_PRIVATE=%x\n", kyber.Priv)
	fmt.Printf("KYBER_PUBLIC=%x\n", kyber.Pub)
}
