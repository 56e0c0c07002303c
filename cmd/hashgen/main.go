// Command hashgen prints a bcrypt hash of the given password, suitable for a
// password_hash field in a provisioning document.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mailadm/mailadm/pkg/helpers"
)

func main() {
	var plain string
	switch len(os.Args) {
	case 1:
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatalf("failed to read password: %v", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	case 2:
		plain = os.Args[1]
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [password]\n", os.Args[0])
		os.Exit(2)
	}

	if plain == "" {
		log.Fatal("password must not be empty")
	}
	hash, err := helpers.HashPassword(plain)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	fmt.Println(hash)
}
