package rating

import (
	"time"

	"github.com/uptrace/bun"
)

type Rating struct {
	bun.BaseModel `bun:"table:ratings,alias:ra"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	BookID    int       `bun:"book_id,notnull,unique:ratings_book_user_key" json:"book_id"`
	UserID    int       `bun:"user_id,notnull,unique:ratings_book_user_key" json:"user_id"`
	Rating    int       `bun:"rating,notnull" json:"rating"`
	Review    *string   `bun:"review" json:"review"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// View is the public JSON shape of a rating; book and user names are joined
// in by the repository when the caller asks for them.
type View struct {
	Rating    int     `json:"rating"`
	Review    *string `json:"review"`
	BookTitle string  `json:"book_title,omitempty"`
	UserName  string  `json:"user_name,omitempty"`
}

type CreateRatingRequest struct {
	Rating int     `json:"rating" validate:"required,gte=1,lte=5"`
	Review *string `json:"review" validate:"omitempty,max=2000"`
}

type UpdateRatingRequest struct {
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Review *string `json:"review" validate:"omitempty,max=2000"`
}
