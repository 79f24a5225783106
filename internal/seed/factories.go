package seed

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

var seedTags = []string{"Go", "Databases", "Distributed Systems", "Frontend", "DevOps", "Career", "Testing", "Security"}

// Factory builds fake domain entities. It does not touch the database.
type Factory struct {
	faker *gofakeit.Faker
	now   time.Time
	ids   map[string]bool
}

// NewFactory creates a Factory. A zero seed derives one from the clock.
func NewFactory(seed int64, now time.Time) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed), now: now.UTC(), ids: map[string]bool{}}
}

func (f *Factory) basePost() *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	content := f.faker.Paragraph(f.faker.Number(3, 8), 5, 12, "\n\n")

	id := validation.Slugify(title)
	if id == "" || validation.IsReservedPostID(id) {
		id = "post"
	}
	for base, n := id, 2; f.ids[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	f.ids[id] = true

	tags := make([]string, 0, 3)
	for i := f.faker.Number(1, 3); i > 0; i-- {
		tags = append(tags, f.faker.RandomString(seedTags))
	}

	created := f.now.Add(-time.Duration(f.faker.Number(24, 90*24)) * time.Hour)
	return &models.Post{
		ID:         id,
		Title:      title,
		Excerpt:    f.faker.Sentence(f.faker.Number(10, 20)),
		Content:    content,
		Tags:       models.CanonicalTags(tags),
		ReadTime:   models.ReadTime(content),
		AuthorName: f.faker.Name(),
		CoverImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", id),
		Status:     models.PostStatusDraft,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

// PublishedPost returns a post that went live some time after it was created.
func (f *Factory) PublishedPost() *models.Post {
	p := f.basePost()
	live := p.CreatedAt.Add(time.Duration(f.faker.Number(1, 23)) * time.Hour)
	_ = p.MarkPublished(live, nil)
	return p
}

// ScheduledPost returns a post due between one hour and one week from now.
func (f *Factory) ScheduledPost() *models.Post {
	p := f.basePost()
	at := f.now.Add(time.Duration(f.faker.Number(1, 7*24)) * time.Hour)
	_ = p.MarkPublished(f.now, &at)
	return p
}

// DraftPost returns an unpublished post.
func (f *Factory) DraftPost() *models.Post {
	return f.basePost()
}

// Comments builds up to n anonymous comments on p, a third of them replies.
func (f *Factory) Comments(p *models.Post, n int) []models.Comment {
	out := make([]models.Comment, 0, n)
	for i := 0; i < n; i++ {
		nick := f.faker.Username()
		at := f.between(*p.PublishedAt, f.now)
		out = append(out, models.Comment{
			PostID:    p.ID,
			Nickname:  &nick,
			Content:   f.faker.Sentence(f.faker.Number(4, 25)),
			Author:    models.ClientActor(f.clientID()),
			CreatedAt: at,
		})
	}
	return out
}

// Likes builds between zero and ten likes from distinct anonymous clients.
func (f *Factory) Likes(p *models.Post) []models.Like {
	n := f.faker.Number(0, 10)
	out := make([]models.Like, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Like{
			PostID:    p.ID,
			ActorKind: models.ActorClient,
			ActorID:   f.clientID(),
			CreatedAt: f.between(*p.PublishedAt, f.now),
		})
	}
	return out
}

// Subscribers builds n subscribed email contacts.
func (f *Factory) Subscribers(n int) []models.Subscriber {
	out := make([]models.Subscriber, 0, n)
	seen := map[string]bool{}
	for len(out) < n {
		email := f.faker.Email()
		norm := strings.ToLower(email)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, models.Subscriber{
			Kind:              models.ContactEmail,
			Contact:           email,
			NormalizedContact: norm,
			Subscribed:        true,
		})
	}
	return out
}

func (f *Factory) clientID() string {
	return fmt.Sprintf("client_%d_%s", f.now.UnixMilli(), f.faker.LetterN(9))
}

func (f *Factory) between(from, to time.Time) time.Time {
	if !to.After(from) {
		return from
	}
	return from.Add(time.Duration(f.faker.Float64Range(0, 1) * float64(to.Sub(from))))
}
