package api

import (
	"errors"
	"fmt"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

// Every request body has an explicit schema and is checked before it is
// serialized; nothing ad hoc goes on the wire.

type validator interface {
	validate() error
}

type movePayload struct {
	Direction string `json:"direction"`
}

func (p movePayload) validate() error {
	if !models.ValidDirection(p.Direction) {
		return fmt.Errorf("bad direction %q", p.Direction)
	}
	return nil
}

type combatPayload struct {
	SpentDice models.DicePool `json:"spent_dice"`
}

func (p combatPayload) validate() error {
	for i, c := range p.SpentDice {
		if c < 0 {
			return fmt.Errorf("negative count in dice slot %d", i)
		}
	}
	if p.SpentDice.Total() == 0 {
		return errors.New("empty dice pool")
	}
	return nil
}

type sellPayload struct {
	ID    int64 `json:"id"`
	Price int   `json:"price"`
}

func (p sellPayload) validate() error {
	if p.ID <= 0 {
		return errors.New("missing item id")
	}
	if p.Price < 0 {
		return errors.New("negative price")
	}
	return nil
}

type buyPayload struct {
	ID     int64           `json:"id"`
	Paying models.DicePool `json:"paying"`
}

func (p buyPayload) validate() error {
	if p.ID <= 0 {
		return errors.New("missing item id")
	}
	for i, c := range p.Paying {
		if c < 0 {
			return fmt.Errorf("negative count in payment slot %d", i)
		}
	}
	return nil
}

type itemPayload struct {
	ID int64 `json:"id"`
}

func (p itemPayload) validate() error {
	if p.ID <= 0 {
		return errors.New("missing item id")
	}
	return nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p credentials) validate() error {
	if p.Username == "" || p.Password == "" {
		return errors.New("username and password required")
	}
	return nil
}
