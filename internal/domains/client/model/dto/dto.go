package dto

import (
	"glow/internal/domains/client/model"
	gModel "glow/shared/model"
	"glow/shared/timezone"

	"github.com/google/uuid"
)

type RegisterClientRequest struct {
	ChatID    string `json:"chat_id"    validate:"required,max=64"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"omitempty,max=100"`
	Username  string `json:"username"   validate:"omitempty,max=100"`
	Phone     string `json:"phone"      validate:"omitempty,max=20"`
	Email     string `json:"email"      validate:"omitempty,email,max=100"`
}

func (c *RegisterClientRequest) ToModel() model.Client {
	now := timezone.Now()

	return model.Client{
		ID:        uuid.NewString(),
		ChatID:    c.ChatID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
		Phone:     c.Phone,
		Email:     c.Email,
		Metadata: gModel.Metadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

type UpdateConsentRequest struct {
	ConsentGiven *bool `json:"consent_given" validate:"required"`
}

type ClientResponse struct {
	ID           string `json:"id"`
	ChatID       string `json:"chat_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	ConsentGiven bool   `json:"consent_given"`
	ConsentAt    string `json:"consent_at,omitempty"`
}

func (r *ClientResponse) FromModel(mod model.Client) {
	r.ID = mod.ID
	r.ChatID = mod.ChatID
	r.FirstName = mod.FirstName
	r.LastName = mod.LastName
	r.Username = mod.Username
	r.Phone = mod.Phone
	r.Email = mod.Email
	r.ConsentGiven = mod.ConsentGiven

	if mod.ConsentAt != nil {
		r.ConsentAt = mod.ConsentAt.Format("2006-01-02T15:04:05Z07:00")
	}
}
