package main

import (
	"os"
	"path/filepath"
)

// keyringHome returns the path to the keyring home directory (~/.keyring).
func keyringHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".keyring"), nil
}

func defaultStorePath(home string) string {
	return filepath.Join(home, "store.json")
}
