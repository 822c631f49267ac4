// Package list implements the demon-list domain operations over the
// local cache: registration, moderation, submissions, placements and
// the derived ranking/title rules.
//
// Every unit of work is read collection, mutate in memory, write
// collection, synchronously end to end. Saves go through the cache
// store, whose write hook hands the dirty collection to the sync
// engine; nothing here ever waits on the network.
package list

import (
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/arclist/arclist/internal/model"
	"github.com/arclist/arclist/internal/store"
)

// Service executes domain operations against the cache store.
type Service struct {
	store  *store.Store
	logger *log.Logger

	now   func() time.Time
	newID func() string
}

// Option adjusts a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides the identifier source.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a Service. If logger is nil, a default logger writing to
// stderr is used.
func New(st *store.Store, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[list] ", log.LstdFlags)
	}
	s := &Service{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  model.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// audit appends one entry describing a visible state change.
func (s *Service) audit(actor, action, target string, details map[string]string) {
	s.store.AppendAudit(model.AuditEntry{
		ID:      s.newID(),
		Actor:   actor,
		Action:  action,
		Target:  target,
		Details: details,
		At:      s.now(),
	})
}

// RegisterUser creates a user with the default role. Usernames are
// unique case-insensitively.
func (s *Service) RegisterUser(username, password, nationality string) (*model.User, error) {
	users := s.store.Users()
	for _, u := range users {
		if model.SameUsername(u.Username, username) {
			return nil, ErrDuplicateUsername
		}
	}

	user := model.User{
		ID:          s.newID(),
		Username:    username,
		Password:    password,
		Role:        model.RoleUser,
		Nationality: nationality,
		CreatedAt:   s.now(),
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	s.store.SaveUsers(append(users, user))
	s.audit(user.ID, "user_register", user.ID, map[string]string{"username": username})
	return &user, nil
}

// Authenticate checks a username/password pair. An expired ban on the
// account is cleared and persisted before the ban check runs.
func (s *Service) Authenticate(username, password string) (*model.User, error) {
	users := s.store.Users()
	for i := range users {
		if !model.SameUsername(users[i].Username, username) {
			continue
		}
		if users[i].Password != password {
			return nil, ErrBadCredentials
		}
		if users[i].IsBanExpired(s.now()) {
			s.ClearExpiredBan(users[i].ID)
			users = s.store.Users()
		}
		if users[i].IsBanned(s.now()) {
			return nil, ErrUserBanned
		}
		u := users[i]
		return &u, nil
	}
	return nil, ErrBadCredentials
}

// PromoteUser changes a user's role.
func (s *Service) PromoteUser(actorID, userID string, role model.Role) error {
	users := s.store.Users()
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		from := users[i].Role
		users[i].Role = role
		s.store.SaveUsers(users)
		s.audit(actorID, "user_promote", userID, map[string]string{
			"from": string(from),
			"to":   string(role),
		})
		return nil
	}
	return ErrUserNotFound
}

// BanUser bans a user until the given epoch-millisecond deadline
// (model.BanPermanent for no expiry). Head admins cannot be banned.
func (s *Service) BanUser(actorID, userID string, until int64, reason string) error {
	if until == 0 {
		return fmt.Errorf("%w: missing ban deadline", ErrInvalidBanTarget)
	}
	users := s.store.Users()
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		if users[i].Role == model.RoleHeadAdmin {
			return ErrInvalidBanTarget
		}
		users[i].BannedUntil = until
		users[i].BanReason = reason
		users[i].BannedBy = actorID
		users[i].BannedAt = s.now().UnixMilli()
		s.store.SaveUsers(users)
		s.audit(actorID, "user_ban", userID, map[string]string{"reason": reason})
		return nil
	}
	return ErrInvalidBanTarget
}

// UnbanUser lifts a ban ahead of its deadline.
func (s *Service) UnbanUser(actorID, userID string) error {
	users := s.store.Users()
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		users[i].ClearBan()
		s.store.SaveUsers(users)
		s.audit(actorID, "user_unban", userID, nil)
		return nil
	}
	return ErrUserNotFound
}

// ClearExpiredBan removes lapsed ban fields from a user and persists
// the cleanup. Explicit command counterpart to the pure
// User.IsBanExpired query; read paths never mutate on their own.
func (s *Service) ClearExpiredBan(userID string) {
	users := s.store.Users()
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		if !users[i].IsBanExpired(s.now()) {
			return
		}
		users[i].ClearBan()
		s.store.SaveUsers(users)
		s.audit(userID, "ban_expired", userID, nil)
		return
	}
}

// SubmitLevel queues a level submission for moderation.
func (s *Service) SubmitLevel(submitterID, name string, creators []string, video string, tags []string) (*model.Submission, error) {
	sub := model.Submission{
		ID:          s.newID(),
		Type:        model.SubmissionLevel,
		LevelName:   name,
		Creators:    creators,
		Video:       video,
		Tags:        tags,
		SubmittedBy: submitterID,
		Status:      model.SubmissionPending,
		CreatedAt:   s.now(),
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}
	s.store.SaveSubmissions(append(s.store.Submissions(), sub))
	s.audit(submitterID, "submit_level", sub.ID, map[string]string{"name": name})
	return &sub, nil
}

// SubmitCompletion queues a completion submission for moderation. The
// referenced level must exist and be published.
func (s *Service) SubmitCompletion(submitterID, levelID, video string, percent int) (*model.Submission, error) {
	level := findLevel(s.store.Levels(), levelID)
	if level == nil {
		return nil, ErrLevelNotFound
	}
	if level.Status != model.LevelPublished {
		return nil, ErrNotPublished
	}

	sub := model.Submission{
		ID:          s.newID(),
		Type:        model.SubmissionCompletion,
		LevelID:     levelID,
		Video:       video,
		Percent:     percent,
		SubmittedBy: submitterID,
		Status:      model.SubmissionPending,
		CreatedAt:   s.now(),
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}
	s.store.SaveSubmissions(append(s.store.Submissions(), sub))
	s.audit(submitterID, "submit_completion", sub.ID, map[string]string{"level": levelID})
	return &sub, nil
}

// ApproveSubmission resolves a pending submission. A level submission
// becomes a published level at the next placement; a completion awards
// points and a deduplicated completion record to its submitter. The
// submission is removed either way.
func (s *Service) ApproveSubmission(actorID, submissionID string) error {
	subs := s.store.Submissions()
	idx := -1
	for i := range subs {
		if subs[i].ID == submissionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSubmissionNotFound
	}
	sub := subs[idx]

	switch sub.Type {
	case model.SubmissionLevel:
		if err := s.approveLevel(actorID, sub); err != nil {
			return err
		}
	case model.SubmissionCompletion:
		if err := s.approveCompletion(actorID, sub); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown submission type %q", sub.Type)
	}

	s.store.SaveSubmissions(append(subs[:idx], subs[idx+1:]...))
	return nil
}

// approveLevel publishes a submitted level at placement max+1.
func (s *Service) approveLevel(actorID string, sub model.Submission) error {
	levels := s.store.Levels()
	placement := 0
	for _, l := range levels {
		if l.Status == model.LevelPublished && l.Placement > placement {
			placement = l.Placement
		}
	}

	level := model.Level{
		ID:          s.newID(),
		Name:        sub.LevelName,
		Creators:    sub.Creators,
		Video:       sub.Video,
		Status:      model.LevelPublished,
		Placement:   placement + 1,
		Tags:        sub.Tags,
		SubmittedBy: sub.SubmittedBy,
		ApprovedBy:  actorID,
		ApprovedAt:  s.now(),
	}
	if err := level.Validate(); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	s.store.SaveLevels(append(levels, level))
	s.audit(actorID, "approve_level", level.ID, map[string]string{
		"name":      level.Name,
		"placement": fmt.Sprintf("%d", level.Placement),
	})
	return nil
}

// approveCompletion awards points for a verified completion. The
// (level, video) pair dedups: a second approval of the same completion
// neither awards points again nor appends a second record.
func (s *Service) approveCompletion(actorID string, sub model.Submission) error {
	level := findLevel(s.store.Levels(), sub.LevelID)
	if level == nil {
		return ErrLevelNotFound
	}
	if level.Status != model.LevelPublished {
		return ErrNotPublished
	}

	users := s.store.Users()
	for i := range users {
		if users[i].ID != sub.SubmittedBy {
			continue
		}
		if users[i].HasCompleted(sub.LevelID, sub.Video) {
			s.logger.Printf("Duplicate completion of %s by %s ignored", sub.LevelID, sub.SubmittedBy)
			return nil
		}
		award := AwardForPlacement(level.Placement)
		users[i].Points += award
		users[i].Completed = append(users[i].Completed, model.CompletedRecord{
			LevelID:   sub.LevelID,
			Video:     sub.Video,
			Percent:   sub.Percent,
			AwardedAt: s.now(),
		})
		s.store.SaveUsers(users)
		s.audit(actorID, "approve_completion", sub.ID, map[string]string{
			"user":   sub.SubmittedBy,
			"level":  sub.LevelID,
			"points": fmt.Sprintf("%d", award),
		})
		return nil
	}
	return ErrUserNotFound
}

// RejectSubmission terminally resolves a submission by removing it.
func (s *Service) RejectSubmission(actorID, submissionID string, reason string) error {
	subs := s.store.Submissions()
	for i := range subs {
		if subs[i].ID != submissionID {
			continue
		}
		s.store.SaveSubmissions(append(subs[:i], subs[i+1:]...))
		s.audit(actorID, "reject_submission", submissionID, map[string]string{"reason": reason})
		return nil
	}
	return ErrSubmissionNotFound
}

// RemoveLevel deletes a level and renumbers the remaining published
// placements back to a dense 1..N sequence.
func (s *Service) RemoveLevel(actorID, levelID string) error {
	levels := s.store.Levels()
	idx := -1
	for i := range levels {
		if levels[i].ID == levelID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrLevelNotFound
	}
	name := levels[idx].Name
	levels = append(levels[:idx], levels[idx+1:]...)
	renumber(levels)
	s.store.SaveLevels(levels)
	s.audit(actorID, "remove_level", levelID, map[string]string{"name": name})
	return nil
}

// MoveLevel moves a published level up (delta -1, toward placement 1)
// or down (delta +1) by swapping placements with its neighbor. Moves
// past either end of the list are no-ops.
func (s *Service) MoveLevel(actorID, levelID string, delta int) error {
	if delta != -1 && delta != 1 {
		return fmt.Errorf("move delta must be -1 or 1 (got %d)", delta)
	}

	levels := s.store.Levels()
	published := publishedByPlacement(levels)
	idx := -1
	for i := range published {
		if published[i].ID == levelID {
			idx = i
			break
		}
	}
	if idx < 0 {
		level := findLevel(levels, levelID)
		if level == nil {
			return ErrLevelNotFound
		}
		return ErrNotPublished
	}

	neighbor := idx + delta
	if neighbor < 0 || neighbor >= len(published) {
		return nil
	}

	a, b := published[idx].ID, published[neighbor].ID
	pa, pb := published[idx].Placement, published[neighbor].Placement
	for i := range levels {
		switch levels[i].ID {
		case a:
			levels[i].Placement = pb
		case b:
			levels[i].Placement = pa
		}
	}
	s.store.SaveLevels(levels)
	s.audit(actorID, "move_level", levelID, map[string]string{
		"from": fmt.Sprintf("%d", pa),
		"to":   fmt.Sprintf("%d", pb),
	})
	return nil
}

// findLevel returns the level with the given id, or nil.
func findLevel(levels []model.Level, id string) *model.Level {
	for i := range levels {
		if levels[i].ID == id {
			return &levels[i]
		}
	}
	return nil
}

// publishedByPlacement returns the published levels sorted by placement.
func publishedByPlacement(levels []model.Level) []model.Level {
	var published []model.Level
	for _, l := range levels {
		if l.Status == model.LevelPublished {
			published = append(published, l)
		}
	}
	sort.Slice(published, func(i, j int) bool {
		return published[i].Placement < published[j].Placement
	})
	return published
}

// renumber restores the dense 1..N placement sequence in placement
// order, mutating levels in place.
func renumber(levels []model.Level) {
	published := publishedByPlacement(levels)
	next := map[string]int{}
	for i, l := range published {
		next[l.ID] = i + 1
	}
	for i := range levels {
		if p, ok := next[levels[i].ID]; ok {
			levels[i].Placement = p
		}
	}
}
