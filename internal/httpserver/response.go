package httpserver

import (
	"encoding/json"
	"time"

	"shoplite/internal/domain"
)

type itemResponse struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Category    string      `json:"category"`
	ImageURL    string      `json:"imageUrl"`
	Stock       int         `json:"stock"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// lineResponse is one cart line; Item is null once the catalog entry is gone.
type lineResponse struct {
	ItemID   string        `json:"itemId"`
	Item     *itemResponse `json:"item"`
	Quantity int           `json:"quantity"`
}

type cartResponse struct {
	Items []lineResponse `json:"items"`
}

type mergeResponse struct {
	Items   []lineResponse `json:"items"`
	Skipped []string       `json:"skipped"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  userResponse   `json:"user"`
	Cart  []lineResponse `json:"cart,omitempty"`
}

func toItemResponse(it domain.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		Price:       json.Number(it.Price.String()),
		Category:    it.Category,
		ImageURL:    it.ImageURL,
		Stock:       it.Stock,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func toItemList(items []domain.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	return out
}

func toLines(lines []domain.ResolvedLine) []lineResponse {
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		lr := lineResponse{ItemID: l.ItemID, Quantity: l.Quantity}
		if l.Item != nil {
			ir := toItemResponse(*l.Item)
			lr.Item = &ir
		}
		out = append(out, lr)
	}
	return out
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}
