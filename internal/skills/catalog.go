// Package skills resolves skill identifiers against the active catalog and
// decides match eligibility between skill sets.
package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
)

// Catalog answers set-membership queries over the active skill identifiers.
type Catalog interface {
	IsActive(ctx context.Context, skillID string) (bool, error)

	// ResolveAll validates that every given skill id is active; unknown or
	// inactive ids yield a VALIDATION error naming them.
	ResolveAll(ctx context.Context, skillIDs []string) error
}

// Intersects reports whether a job's required skill set matches a labourer's
// set. An empty required set matches any labourer.
func Intersects(required, offered []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(offered))
	for _, skill := range offered {
		have[normalize(skill)] = struct{}{}
	}
	for _, skill := range required {
		if _, ok := have[normalize(skill)]; ok {
			return true
		}
	}
	return false
}

func normalize(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

func resolveAll(ctx context.Context, c Catalog, skillIDs []string) error {
	var unknown []string
	for _, id := range skillIDs {
		active, err := c.IsActive(ctx, id)
		if err != nil {
			return err
		}
		if !active {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return errors.Validation(fmt.Sprintf("unknown or inactive skills: %s", strings.Join(unknown, ", ")), nil)
	}
	return nil
}
