// Package alias maintains the relative "latest" symlink next to version directories.
package alias

import (
	"fmt"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// Update points parentDir/aliasName at the sibling directory targetName.
// Any existing alias is removed first, recursively if it was materialised
// as a real directory. The link target is always the relative name.
//
// Removal and creation are two steps; a concurrent reader may briefly see no alias.
func Update(parentDir, targetName, aliasName string) error {
	if err := checkName(targetName); err != nil {
		return err
	}
	if err := checkName(aliasName); err != nil {
		return err
	}
	if targetName == aliasName {
		return ferrors.ValidationError("alias cannot point at itself").WithContext("alias", aliasName).Build()
	}

	target := filepath.Join(parentDir, targetName)
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return ferrors.PreconditionError(fmt.Sprintf("alias target %s does not exist", target)).
			WithContext("target", target).
			WithRemedy("produce the version directory before updating the alias").
			Build()
	}

	link := filepath.Join(parentDir, aliasName)
	if _, err := os.Lstat(link); err == nil {
		if err := os.RemoveAll(link); err != nil {
			return ferrors.FileSystemError("remove existing alias").WithCause(err).WithContext("path", link).Build()
		}
	}

	if err := os.Symlink(targetName, link); err != nil {
		return ferrors.FileSystemError("create alias symlink").WithCause(err).WithContext("path", link).Build()
	}
	return nil
}

// Resolve returns the relative target of parentDir/aliasName.
func Resolve(parentDir, aliasName string) (string, error) {
	link := filepath.Join(parentDir, aliasName)
	target, err := os.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("read alias %s: %w", link, err)
	}
	return target, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return ferrors.ValidationError(fmt.Sprintf("%q is not a plain directory name", name)).Build()
	}
	return nil
}
