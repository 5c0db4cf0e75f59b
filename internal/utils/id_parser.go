package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/types"
)

// MinPrefixLen is the shortest prefix ResolvePartialID accepts.
const MinPrefixLen = 4

// ResolvePartialID resolves a full or abbreviated item ID.
//
// An exact ID match wins. Otherwise input must be a unique prefix of one
// item's ID (dashes optional). No match returns storage.ErrNotFound; more
// than one match is an error listing the candidates.
func ResolvePartialID(ctx context.Context, r storage.Reader, input string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("cannot resolve item ID %q: storage is nil", input)
	}
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", fmt.Errorf("item ID is required")
	}

	exact, err := r.ListItems(ctx, types.ItemFilter{IDs: []string{input}})
	if err != nil {
		return "", fmt.Errorf("failed to look up item: %w", err)
	}
	if len(exact) > 0 {
		return exact[0].ID, nil
	}
	if len(input) < MinPrefixLen {
		return "", fmt.Errorf("item ID %q is too short (need at least %d characters): %w", input, MinPrefixLen, storage.ErrNotFound)
	}

	all, err := r.ListItems(ctx, types.ItemFilter{})
	if err != nil {
		return "", fmt.Errorf("failed to list items: %w", err)
	}
	want := compactID(input)
	var matches []string
	for _, item := range all {
		if strings.HasPrefix(compactID(item.ID), want) {
			matches = append(matches, item.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no item found matching %q: %w", input, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("ambiguous ID %q matches %d items: %v\nUse more characters to disambiguate", input, len(matches), matches)
}

// ResolvePartialIDs resolves each input with ResolvePartialID.
func ResolvePartialIDs(ctx context.Context, r storage.Reader, inputs []string) ([]string, error) {
	var resolved []string
	for _, input := range inputs {
		fullID, err := ResolvePartialID(ctx, r, input)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, fullID)
	}
	return resolved, nil
}

func compactID(id string) string {
	return strings.ReplaceAll(strings.ToLower(id), "-", "")
}
