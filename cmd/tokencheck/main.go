package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/NabilMouzouna/NubleTrust-monorepo/pkg/verifier"
)

func main() {
	log.SetFlags(0)
	var (
		keyURL = flag.String("key-url", envOr("NUBLETRUST_PUBLIC_KEY_URL", "http://localhost:8080/.well-known/publicKey"), "Public key endpoint")
		issuer = flag.String("issuer", envOr("TOKEN_ISSUER", "nubletrust"), "Expected iss claim")
	)
	flag.Parse()

	if len(flag.Args()) != 1 {
		log.Fatal("usage: tokencheck [-key-url URL] [-issuer ISS] <access-token>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	v := verifier.New(*keyURL, verifier.WithIssuer(*issuer))
	claims, err := v.Verify(ctx, flag.Arg(0))
	if err != nil {
		log.Fatalf("token rejected: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(claims); err != nil {
		log.Fatalf("encode claims: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
