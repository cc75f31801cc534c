package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/identity"
)

// Fixture is the YAML description of the host's roles, users and locales.
type Fixture struct {
	Roles   []directory.Role `yaml:"roles"`
	Users   []directory.User `yaml:"users"`
	Locales []string         `yaml:"locales"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory fixture: %w", err)
	}
	fixture := &Fixture{}
	if err := yaml.Unmarshal(data, fixture); err != nil {
		return nil, fmt.Errorf("parse directory fixture %s: %w", path, err)
	}
	return fixture, nil
}

// Directory builds an in-memory directory from the fixture.
func (f *Fixture) Directory() *directory.MemoryDirectory {
	dir := directory.NewMemoryDirectory()
	if f == nil {
		return dir
	}
	for _, role := range f.Roles {
		dir.AddRole(role)
	}
	for _, user := range f.Users {
		dir.AddUser(user)
	}
	dir.SetLocales(f.Locales...)
	return dir
}

// Operator builds the operator for a fixture user.
func (f *Fixture) Operator(id, token string) (identity.Operator, error) {
	id = strings.TrimSpace(id)
	if f != nil {
		for _, user := range f.Users {
			if user.ID != id {
				continue
			}
			return identity.Operator{
				ID:           user.ID,
				Login:        user.Login,
				Roles:        user.Roles,
				Capabilities: directory.ResolveCapabilities(user, f.Roles),
				SessionToken: token,
				SuperAdmin:   user.SuperAdmin,
			}, nil
		}
	}
	return identity.Operator{}, fmt.Errorf("operator %q is not in the directory fixture", id)
}
