package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env from project root
	_ = godotenv.Load("../.env")

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <formID>")
		os.Exit(1)
	}

	formID := os.Args[1]
	secret := os.Getenv("FORM_KEY_SECRET")
	if secret == "" {
		fmt.Println("Error: FORM_KEY_SECRET not found in .env")
		os.Exit(1)
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(formID))
	signature := hex.EncodeToString(h.Sum(nil))

	fmt.Printf("fk.%s.%s\n", formID, signature)
}
