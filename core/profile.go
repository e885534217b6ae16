package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FormatAccountProfile renders the directory view of an account as a
// markdown detail list: email first, then tags in key order.
func FormatAccountProfile(account AccountRef) string {
	var b strings.Builder
	b.WriteString("- **Email**\n")
	b.WriteString("    - " + account.Email + "\n")
	if len(account.Tags) == 0 {
		return b.String()
	}
	keys := make([]string, 0, len(account.Tags))
	for key := range account.Tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	b.WriteString("- **Account tags**\n")
	for _, key := range keys {
		b.WriteString(fmt.Sprintf("    - %s: %s\n", key, account.Tags[key]))
	}
	return b.String()
}

// ShowProfile resolves the requester's directory account and yields their
// profile details.
func (s *Service) ShowProfile(ctx context.Context, requester Requester) MessageStream {
	return func(yield func(string, error) bool) {
		if s == nil || s.directory == nil {
			yield("", internalError("core: directory client is not configured"))
			return
		}
		account, err := s.directory.FindAccountByIdentity(ctx, requester.Email)
		if err != nil {
			if IsNotFound(err) {
				yield(fmt.Sprintf("Sorry, I can't find an account for %s.", requester.Email), nil)
				return
			}
			yield("", s.mapError(err))
			return
		}
		yield(fmt.Sprintf("%s, here's your profile details:\n%s", requester.Nick, FormatAccountProfile(account)), nil)
	}
}
