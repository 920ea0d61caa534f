package book

import (
	"time"

	"library-service/internal/category"
	"library-service/internal/rating"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull,unique" json:"title"`
	Author      string    `bun:"author,notnull" json:"author"`
	Description string    `bun:"description,notnull" json:"description"`
	PublishedAt time.Time `bun:"published_at,notnull" json:"published_at"`
	CategoryID  int       `bun:"category_id,notnull" json:"category_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Category *category.Category `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Ratings  []*rating.Rating   `bun:"rel:has-many,join:id=book_id" json:"ratings,omitempty"`
}

// View is the public JSON shape of a book: the category is flattened to its
// name, ratings are embedded, and the average is precomputed.
type View struct {
	ID            int           `json:"id"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	PublishedAt   string        `json:"published_at"`
	Description   string        `json:"description"`
	CategoryName  string        `json:"category_name"`
	Ratings       []rating.View `json:"ratings"`
	AverageRating *float64      `json:"average_rating"`
}

func (b *Book) View() View {
	v := View{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		PublishedAt: b.PublishedAt.Format("2006-01-02"),
		Description: b.Description,
		Ratings:     make([]rating.View, 0, len(b.Ratings)),
	}
	if b.Category != nil {
		v.CategoryName = b.Category.Name
	}

	var sum int
	for _, r := range b.Ratings {
		v.Ratings = append(v.Ratings, rating.View{Rating: r.Rating, Review: r.Review})
		sum += r.Rating
	}
	if len(b.Ratings) > 0 {
		avg := float64(sum) / float64(len(b.Ratings))
		v.AverageRating = &avg
	}
	return v
}

func Views(books []Book) []View {
	views := make([]View, 0, len(books))
	for i := range books {
		views = append(views, books[i].View())
	}
	return views
}

type CreateBookRequest struct {
	Title        string `json:"title" validate:"required,min=3,max=255"`
	Author       string `json:"author" validate:"required,min=3,max=255"`
	Description  string `json:"description" validate:"required"`
	PublishedAt  string `json:"published_at" validate:"required"`
	CategoryName string `json:"category_name" validate:"required"`
}

type UpdateBookRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=3,max=255"`
	Author       *string `json:"author" validate:"omitempty,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty"`
	PublishedAt  *string `json:"published_at" validate:"omitempty"`
	CategoryName *string `json:"category_name" validate:"omitempty"`
}

// ListFilters are the supported query parameters on the public book list.
type ListFilters struct {
	Author       string
	CategoryName string
	Available    bool
	SortBy       string
	SortOrder    string
	Page         int
}
