package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

// UserService manages the display information shown next to senders.
type UserService struct {
	DB   *gorm.DB
	Sync *Synchronizer

	// NameMaxLen caps stored display names by rune length.
	NameMaxLen int
}

// NewUserService constructs a UserService with the default name cap.
func NewUserService(db *gorm.DB, sync *Synchronizer) *UserService {
	return &UserService{DB: db, Sync: sync, NameMaxLen: 120}
}

// SetDisplayName normalizes name and stores it for userID. Everyone sharing a
// conversation with the user gets a refreshed list so the new name shows up.
func (s *UserService) SetDisplayName(ctx context.Context, userID, name string) (*domain.User, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyDisplayName
	}
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		name = string([]rune(name)[:s.NameMaxLen])
	}
	u, err := repo.UpsertUser(ctx, s.DB, userID, name)
	if err != nil {
		return nil, err
	}

	if s.Sync != nil {
		convs, err := repo.ListConversationsForUser(ctx, s.DB, userID)
		if err == nil {
			peers := lo.Uniq(lo.FlatMap(convs, func(c domain.Conversation, _ int) []string {
				return participantIDs(&c)
			}))
			s.Sync.Refresh(ctx, peers...)
		}
	}
	return u, nil
}

// AdoptName stores the name carried by a verified token as userID's display
// name when the user has none yet. A name set through SetDisplayName wins
// over later tokens. Blank names are ignored.
func (s *UserService) AdoptName(ctx context.Context, userID, name string) error {
	if normalizeName(name) == "" {
		return nil
	}
	names, err := repo.DisplayNames(ctx, s.DB, []string{userID})
	if err != nil {
		return err
	}
	if _, ok := names[userID]; ok {
		return nil
	}
	_, err = s.SetDisplayName(ctx, userID, name)
	return err
}

// normalizeName trims, applies NFC and collapses runs of whitespace.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(norm.NFC.String(strings.TrimSpace(s)), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
