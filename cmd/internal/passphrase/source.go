package passphrase

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a keystore passphrase once and caches it. The environment
// variable wins; otherwise the operator is prompted when stdin is a terminal.
// With neither available the passphrase is empty, which is what keystores
// written without a passphrase expect.
type Source struct {
	envVar string
	label  string

	// isTerminal and readPassword are swapped out in tests.
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)

	once  sync.Once
	value string
	err   error
}

// NewSource returns a source for the keystore named by label, e.g. "wallet".
func NewSource(envVar, label string) *Source {
	return &Source{
		envVar:       strings.TrimSpace(envVar),
		label:        label,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				s.value = value
				return
			}
		}

		fd := int(os.Stdin.Fd())
		if !s.isTerminal(fd) {
			return
		}
		fmt.Fprintf(os.Stderr, "Enter %s keystore passphrase: ", s.label)
		bytes, err := s.readPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			s.err = fmt.Errorf("read %s passphrase: %w", s.label, err)
			return
		}
		s.value = string(bytes)
	})
	return s.value, s.err
}
