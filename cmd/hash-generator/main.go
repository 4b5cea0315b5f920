// Command hash-generator prints bcrypt hashes for seeding user rows by hand.
// Passwords are read from the arguments, or one per line from stdin when no
// arguments are given.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	passwords := flag.Args()
	if len(passwords) == 0 {
		var err error
		if passwords, err = readLines(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stdin: %v\n", err)
			os.Exit(1)
		}
	}

	failed := false
	for _, password := range passwords {
		hash, err := auth.HashPassword(password, *cost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			failed = true
			continue
		}
		fmt.Println(hash)
	}
	if failed {
		os.Exit(1)
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
