package list

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arclist/arclist/internal/model"
)

// SeedFixture is the YAML shape accepted by SeedFromFile.
type SeedFixture struct {
	Users []struct {
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		Role        string `yaml:"role"`
		Nationality string `yaml:"nationality"`
	} `yaml:"users"`
	Levels []struct {
		Name     string   `yaml:"name"`
		Creators []string `yaml:"creators"`
		Video    string   `yaml:"video"`
		Tags     []string `yaml:"tags"`
	} `yaml:"levels"`
}

// Seed initializes an empty database: when no users exist it creates
// exactly one head-admin account and two sample levels at placements 1
// and 2. A non-empty database is left untouched. Returns whether
// seeding ran.
func (s *Service) Seed() bool {
	if len(s.store.Users()) > 0 {
		return false
	}

	admin := model.User{
		ID:        s.newID(),
		Username:  "admin",
		Password:  "admin",
		Role:      model.RoleHeadAdmin,
		CreatedAt: s.now(),
	}
	s.store.SaveUsers([]model.User{admin})

	now := s.now()
	levels := []model.Level{
		{
			ID:         s.newID(),
			Name:       "Bloodbath",
			Creators:   []string{"Riot"},
			Video:      "https://youtu.be/vOlqQgr6bVE",
			Status:     model.LevelPublished,
			Placement:  1,
			Tags:       []string{"wave", "timing"},
			ApprovedBy: admin.ID,
			ApprovedAt: now,
		},
		{
			ID:         s.newID(),
			Name:       "Sonic Wave",
			Creators:   []string{"Cyclic"},
			Video:      "https://youtu.be/2XWbMyZzVUI",
			Status:     model.LevelPublished,
			Placement:  2,
			Tags:       []string{"wave", "fast-paced"},
			ApprovedBy: admin.ID,
			ApprovedAt: now,
		},
	}
	s.store.SaveLevels(levels)

	s.audit(admin.ID, "seed", "", map[string]string{"levels": "2"})
	s.logger.Printf("Seeded database: 1 head admin, %d levels", len(levels))
	return true
}

// SeedFromFile loads a YAML fixture and creates its users and published
// levels on top of whatever exists, skipping duplicate usernames.
// Levels are appended to the end of the list in fixture order.
func (s *Service) SeedFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed fixture: %w", err)
	}
	var fixture SeedFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("failed to parse seed fixture %s: %w", path, err)
	}

	for _, u := range fixture.Users {
		role := model.Role(u.Role)
		if role == "" {
			role = model.RoleUser
		}
		user, err := s.RegisterUser(u.Username, u.Password, u.Nationality)
		if err != nil {
			s.logger.Printf("WARNING: skipping fixture user %s: %v", u.Username, err)
			continue
		}
		if role != model.RoleUser {
			if err := s.PromoteUser(user.ID, user.ID, role); err != nil {
				return err
			}
		}
	}

	for _, l := range fixture.Levels {
		levels := s.store.Levels()
		placement := 0
		for _, existing := range levels {
			if existing.Status == model.LevelPublished && existing.Placement > placement {
				placement = existing.Placement
			}
		}
		level := model.Level{
			ID:        s.newID(),
			Name:      l.Name,
			Creators:  l.Creators,
			Video:     l.Video,
			Status:    model.LevelPublished,
			Placement: placement + 1,
			Tags:      l.Tags,
		}
		if err := level.Validate(); err != nil {
			s.logger.Printf("WARNING: skipping fixture level %s: %v", l.Name, err)
			continue
		}
		s.store.SaveLevels(append(levels, level))
	}
	return nil
}
