// Package seed provides helpers to create demo data for development and
// testing. Everything is written through the services so seeded posts are
// rendered and tagged exactly like posts saved through the API.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"scriptorium/internal/middleware"
	"scriptorium/internal/models"
	"scriptorium/internal/repository"
	"scriptorium/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
)

// DefaultPassword is given to every generated user.
const DefaultPassword = "password123"

// Options configuration for the random seeder
type Options struct {
	NumUsers int
	NumPosts int
	// MaxTags caps the tags attached to each generated post.
	MaxTags int
	// Seed makes the generated content reproducible. Zero picks a random seed.
	Seed int64
}

// Result counts what a seeding run wrote.
type Result struct {
	Users int
	Posts int
}

// Fixtures is the YAML document accepted by LoadFixtures.
type Fixtures struct {
	Users []FixtureUser `yaml:"users"`
	Posts []FixturePost `yaml:"posts"`
}

type FixtureUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type FixturePost struct {
	Owner      string   `yaml:"owner"`
	Title      string   `yaml:"title"`
	TitleImage string   `yaml:"title_image"`
	Content    string   `yaml:"content"`
	Tags       []string `yaml:"tags"`
	// Draft leaves the post unsaved.
	Draft bool `yaml:"draft"`
}

// Seeder writes demo users and posts.
type Seeder struct {
	posts    *service.PostService
	accounts *service.UserService
	users    repository.UserRepository
}

func NewSeeder(posts *service.PostService, accounts *service.UserService, users repository.UserRepository) *Seeder {
	return &Seeder{posts: posts, accounts: accounts, users: users}
}

// ParseFixtures decodes a fixtures document. Unknown keys are rejected.
func ParseFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// LoadFixtures creates the users and posts described in r. Users that
// already exist are reused, so loading the same file twice only adds posts.
func (s *Seeder) LoadFixtures(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	f, err := ParseFixtures(r)
	if err != nil {
		return res, err
	}

	owners := make(map[string]int64, len(f.Users))
	for _, u := range f.Users {
		user, created, err := s.ensureUser(ctx, u.Email, u.Password)
		if err != nil {
			return res, err
		}
		owners[user.Email] = user.ID
		if created {
			res.Users++
		}
	}

	for i, p := range f.Posts {
		ownerID, ok := owners[strings.ToLower(strings.TrimSpace(p.Owner))]
		if !ok {
			return res, fmt.Errorf("post %d: owner %q is not declared in users", i, p.Owner)
		}

		id, err := s.posts.CreateDraft(ctx, ownerID)
		if err != nil {
			return res, fmt.Errorf("post %d: create draft: %w", i, err)
		}
		res.Posts++
		if p.Draft {
			continue
		}

		tags := p.Tags
		if _, err := s.posts.Save(ctx, service.SavePostInput{
			ID:         id,
			Title:      p.Title,
			TitleImage: p.TitleImage,
			Content:    p.Content,
			Tags:       &tags,
		}); err != nil {
			return res, fmt.Errorf("post %d: save: %w", i, err)
		}
	}

	middleware.Logger.InfoContext(ctx, "fixtures loaded",
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
	)
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, email, password string) (*models.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if password == "" {
		password = DefaultPassword
	}
	user, err := s.accounts.Register(ctx, email, password)
	if err != nil {
		return nil, false, fmt.Errorf("register %s: %w", email, err)
	}
	return user, true, nil
}

// Random generates opts.NumUsers users and spreads opts.NumPosts saved posts
// across them.
func (s *Seeder) Random(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if opts.NumUsers <= 0 {
		opts.NumUsers = 1
	}
	if opts.MaxTags <= 0 {
		opts.MaxTags = 3
	}

	f := NewFactory(opts.Seed)

	ownerIDs := make([]int64, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, created, err := s.ensureUser(ctx, f.Email(i), DefaultPassword)
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
		ownerIDs = append(ownerIDs, user.ID)
	}

	for i := 0; i < opts.NumPosts; i++ {
		owner := ownerIDs[f.faker.Number(0, len(ownerIDs)-1)]
		id, err := s.posts.CreateDraft(ctx, owner)
		if err != nil {
			return res, fmt.Errorf("create draft: %w", err)
		}

		in := f.Post(id, opts.MaxTags)
		if _, err := s.posts.Save(ctx, in); err != nil {
			return res, fmt.Errorf("save post %d: %w", id, err)
		}
		res.Posts++
	}

	middleware.Logger.InfoContext(ctx, "random seed complete",
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
	)
	return res, nil
}

// Factory generates fake post content.
type Factory struct {
	faker *gofakeit.Faker
}

var tagPool = []string{
	"go", "rust", "databases", "devops", "frontend", "backend", "linux",
	"homelab", "books", "travel", "music", "photography", "notes",
}

// NewFactory creates a Factory. seed 0 yields different content on every run.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Email returns a unique address for the i-th generated user.
func (f *Factory) Email(i int) string {
	return fmt.Sprintf("%s.%d@scriptorium.local", strings.ToLower(f.faker.FirstName()), i)
}

// Post builds the save input for draft id.
func (f *Factory) Post(id int64, maxTags int) service.SavePostInput {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), ".")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString(f.faker.Paragraph(2, 4, 12, "\n\n"))
	b.WriteString("\n\n## Notes\n\n")
	for i := 0; i < f.faker.Number(2, 4); i++ {
		fmt.Fprintf(&b, "- %s\n", f.faker.Sentence(6))
	}

	count := f.faker.Number(0, maxTags)
	tags := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tags = append(tags, tagPool[f.faker.Number(0, len(tagPool)-1)])
	}

	return service.SavePostInput{
		ID:         id,
		Title:      title,
		TitleImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/600", f.faker.UUID()),
		Content:    b.String(),
		Tags:       &tags,
	}
}
