// Command keygen writes a fresh RSA key pair for signing access tokens.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/Skotchmaster/auth_service/internal/keys"
)

func main() {
	out := flag.String("out", "certs", "directory for privateKey.pem and publicKey.pem")
	bits := flag.Int("bits", 2048, "RSA key size")
	flag.Parse()

	privPEM, pubPEM, err := keys.Generate(*bits)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	if err := os.WriteFile(filepath.Join(*out, "privateKey.pem"), privPEM, 0o600); err != nil {
		log.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(filepath.Join(*out, "publicKey.pem"), pubPEM, 0o644); err != nil {
		log.Fatalf("write public key: %v", err)
	}
	log.Printf("keys written to %s", *out)
}
