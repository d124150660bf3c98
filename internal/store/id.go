package store

import (
	"crypto/rand"
	"fmt"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// Largest multiple of 36 below 256; bytes at or above it are rejected
	// so every character is equally likely.
	base36Cutoff = 252

	idShortLength = 4
	idLongLength  = 6
	idMaxAttempts = 20

	TicketIDPrefix  = "tk"
	ProjectIDPrefix = "pj"
)

// GenerateID returns a new id of the form prefix-xxxx, checking exists for
// collisions. After half the attempts collide it switches to longer ids.
func GenerateID(prefix string, exists func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}

	for attempt := 0; attempt < idMaxAttempts; attempt++ {
		length := idShortLength
		if attempt >= idMaxAttempts/2 {
			length = idLongLength
		}
		suffix, err := randomBase36(length)
		if err != nil {
			return "", err
		}
		id := prefix + "-" + suffix
		if exists == nil {
			return id, nil
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique %s id after %d attempts", prefix, idMaxAttempts)
}

func GenerateTicketID(exists func(string) (bool, error)) (string, error) {
	return GenerateID(TicketIDPrefix, exists)
}

func GenerateProjectID(exists func(string) (bool, error)) (string, error) {
	return GenerateID(ProjectIDPrefix, exists)
}

func randomBase36(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= base36Cutoff {
				continue
			}
			out = append(out, base36Alphabet[int(b)%len(base36Alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
