package borrow

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan is one borrow record. A loan is open while returned_at is NULL and
// closed once it is set.
type Loan struct {
	bun.BaseModel `bun:"table:borrow_records,alias:br"`

	ID         int        `bun:"id,pk,autoincrement" json:"id"`
	BookID     int        `bun:"book_id,notnull" json:"book_id"`
	UserID     int        `bun:"user_id,notnull" json:"user_id"`
	BorrowedAt time.Time  `bun:"borrowed_at,notnull" json:"borrowed_at"`
	DueDate    time.Time  `bun:"due_date,notnull" json:"due_date"`
	ReturnedAt *time.Time `bun:"returned_at" json:"returned_at"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	// Populated by joined selects only.
	BookTitle string `bun:"book_title,scanonly" json:"-"`
	UserName  string `bun:"user_name,scanonly" json:"-"`
}

// View is the public JSON shape of a loan; book and user names are joined in
// by the repository.
type View struct {
	ID         int     `json:"id"`
	BookTitle  string  `json:"book_title"`
	UserName   string  `json:"user_name"`
	BorrowedAt string  `json:"borrowed_at"`
	DueDate    string  `json:"due_date"`
	ReturnedAt *string `json:"returned_at"`
}

const dateLayout = "2006-01-02"

func (l *Loan) view() View {
	v := View{
		ID:         l.ID,
		BookTitle:  l.BookTitle,
		UserName:   l.UserName,
		BorrowedAt: l.BorrowedAt.Format(dateLayout),
		DueDate:    l.DueDate.Format(dateLayout),
	}
	if l.ReturnedAt != nil {
		returned := l.ReturnedAt.Format(dateLayout)
		v.ReturnedAt = &returned
	}
	return v
}

type BorrowRequest struct {
	BorrowedAt *string `json:"borrowed_at" validate:"omitempty"`
}

type UpdateLoanRequest struct {
	BorrowedAt *string `json:"borrowed_at" validate:"omitempty"`
	DueDate    *string `json:"due_date" validate:"omitempty"`
	ReturnedAt *string `json:"returned_at" validate:"omitempty"`
}
