package domain

import "time"

// Session agrupa interacciones de un mismo navegador. No hay autenticacion detras.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
