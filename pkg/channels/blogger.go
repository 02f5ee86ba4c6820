package channels

import (
	"context"
	"fmt"
	"html"
	"strings"

	blogger "google.golang.org/api/blogger/v3"
	"google.golang.org/api/option"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

// postInserter is the minimal Blogger surface used by bloggerChannel.
type postInserter interface {
	Insert(ctx context.Context, blogID string, post *blogger.Post) error
}

type bloggerPosts struct {
	svc *blogger.Service
}

func (p bloggerPosts) Insert(ctx context.Context, blogID string, post *blogger.Post) error {
	_, err := p.svc.Posts.Insert(blogID, post).Context(ctx).Do()
	return err
}

type bloggerChannel struct {
	id     string
	typ    string
	blogID string
	posts  postInserter
	log    Logger
}

func newBloggerChannel(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.Blogger == nil {
		return nil, fmt.Errorf("channel %q missing blogger configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := blogger.NewService(ctx, option.WithAPIKey(cfg.Blogger.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create blogger service: %w", err)
	}

	return &bloggerChannel{
		id:     cfg.ID,
		typ:    TypeBlogger,
		blogID: cfg.Blogger.BlogID,
		posts:  bloggerPosts{svc: svc},
		log:    ensureLogger(log),
	}, nil
}

func (b *bloggerChannel) ID() string   { return b.id }
func (b *bloggerChannel) Type() string { return b.typ }

func (b *bloggerChannel) Publish(ctx context.Context, batch Batch) error {
	post := &blogger.Post{
		Title:   bloggerPostTitle(batch),
		Content: formatBatchBloggerHTML(batch),
		Labels:  []string{string(batch.Category), "jobs"},
	}

	if err := b.posts.Insert(ctx, b.blogID, post); err != nil {
		b.log.ErrorObj("blogger channel insert failed", "channel_blogger_error", map[string]any{
			"channel_id": b.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("insert blogger post: %w", err)
	}
	return nil
}

// Notify is a no-op for Blogger; status chatter does not belong on a blog.
func (b *bloggerChannel) Notify(context.Context, string) error { return nil }

func bloggerPostTitle(batch Batch) string {
	label := "Government Job Updates"
	if batch.Category == domain.CategoryPrivate {
		label = "Private Job Updates"
	}
	return fmt.Sprintf("%s - %s", label, batch.CreatedAt.Format("2 January 2006"))
}

// formatBatchBloggerHTML renders a batch as blog post HTML.
func formatBatchBloggerHTML(batch Batch) string {
	var sb strings.Builder

	for _, job := range batch.Jobs {
		sb.WriteString("<h3>" + html.EscapeString(job.Title) + "</h3>\n")
		sb.WriteString("<p>" + html.EscapeString(job.Description) + "</p>\n<ul>\n")
		if job.Location != "" {
			sb.WriteString("<li><b>Location:</b> " + html.EscapeString(job.Location) + "</li>\n")
		}
		if job.Qualification != "" {
			sb.WriteString("<li><b>Qualification:</b> " + html.EscapeString(job.Qualification) + "</li>\n")
		}
		if job.Deadline != "" {
			sb.WriteString("<li><b>Last date:</b> " + html.EscapeString(job.Deadline) + "</li>\n")
		}
		sb.WriteString("<li><b>Source:</b> " + html.EscapeString(job.Source) + "</li>\n</ul>\n")
		if job.ApplyLink != "" {
			sb.WriteString(fmt.Sprintf("<p><a href=%q>Apply here</a></p>\n", job.ApplyLink))
		}
	}

	return sb.String()
}
