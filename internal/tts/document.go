// Package tts builds the Tabletop Simulator saved object describing a deck.
package tts

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/arcanaland/ttsdeck/internal/deck"
)

type Transform struct {
	PosX   float64 `json:"posX"`
	PosY   float64 `json:"posY"`
	PosZ   float64 `json:"posZ"`
	RotX   float64 `json:"rotX"`
	RotY   float64 `json:"rotY"`
	RotZ   float64 `json:"rotZ"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
	ScaleZ float64 `json:"scaleZ"`
}

// Identity is the transform every exported object gets, TTS places it.
var Identity = Transform{ScaleX: 1, ScaleY: 1, ScaleZ: 1}

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var (
	deckTint = Color{R: 0.713239133, G: 0.713239133, B: 0.713239133}
	cardTint = Color{R: 0.713235259, G: 0.713235259, B: 0.713235259}
)

// SaveDocument is the top level of a TTS saved object file.
type SaveDocument struct {
	SaveName     string       `json:"SaveName"`
	GameMode     string       `json:"GameMode"`
	Date         string       `json:"Date"`
	Table        string       `json:"Table"`
	Sky          string       `json:"Sky"`
	Note         string       `json:"Note"`
	Rules        string       `json:"Rules"`
	PlayerTurn   string       `json:"PlayerTurn"`
	ObjectStates []DeckObject `json:"ObjectStates"`
}

// CustomDeck describes one sheet.
type CustomDeck struct {
	FaceURL      string `json:"FaceURL"`
	BackURL      string `json:"BackURL"`
	NumWidth     int    `json:"NumWidth"`
	NumHeight    int    `json:"NumHeight"`
	BackIsHidden bool   `json:"BackIsHidden"`
}

type DeckObject struct {
	Name             string                `json:"Name"`
	Transform        Transform             `json:"Transform"`
	Nickname         string                `json:"Nickname"`
	Description      string                `json:"Description"`
	ColorDiffuse     Color                 `json:"ColorDiffuse"`
	Grid             bool                  `json:"Grid"`
	Locked           bool                  `json:"Locked"`
	SidewaysCard     bool                  `json:"SidewaysCard"`
	DeckIDs          []int                 `json:"DeckIDs"`
	CustomDeck       map[string]CustomDeck `json:"CustomDeck"`
	ContainedObjects []CardObject          `json:"ContainedObjects"`
}

type CardObject struct {
	Name         string    `json:"Name"`
	Transform    Transform `json:"Transform"`
	Nickname     string    `json:"Nickname"`
	CardID       int       `json:"CardID"`
	Description  string    `json:"Description"`
	GMNotes      string    `json:"GMNotes,omitempty"`
	ColorDiffuse Color     `json:"ColorDiffuse"`
	Locked       bool      `json:"Locked"`
	Grid         bool      `json:"Grid"`
	Snap         bool      `json:"Snap"`
	Autoraise    bool      `json:"Autoraise"`
	Sticky       bool      `json:"Sticky"`
	Tooltip      bool      `json:"Tooltip"`
	SidewaysCard bool      `json:"SidewaysCard"`
}

// URLs locates the written sheet images.
type URLs interface {
	Face(pageNumber int) string
	Back() string
}

// gmNotes carries the companion catalog id, deck builders read it back.
func gmNotes(externalID string) string {
	if externalID == "" {
		return ""
	}
	data, _ := json.Marshal(struct {
		ID string `json:"id"`
	}{externalID})
	return string(data)
}

// Assemble converts a finished deck into a save document. DeckIDs and
// ContainedObjects are index aligned.
func Assemble(d *deck.Deck, urls URLs, saveName string) SaveDocument {
	obj := DeckObject{
		Name:             "DeckCustom",
		Transform:        Identity,
		Nickname:         d.Name,
		Description:      d.Description,
		ColorDiffuse:     deckTint,
		Grid:             true,
		DeckIDs:          make([]int, 0, d.Slots()),
		CustomDeck:       make(map[string]CustomDeck, len(d.Pages)),
		ContainedObjects: make([]CardObject, 0, d.Slots()),
	}

	for i, p := range d.Pages {
		obj.CustomDeck[strconv.Itoa(i+1)] = CustomDeck{
			FaceURL:      urls.Face(p.Number),
			BackURL:      urls.Back(),
			NumWidth:     p.Columns,
			NumHeight:    p.Rows,
			BackIsHidden: true,
		}
		for _, slot := range p.Slots {
			obj.DeckIDs = append(obj.DeckIDs, slot.ID)
			obj.ContainedObjects = append(obj.ContainedObjects, CardObject{
				Name:         "Card",
				Transform:    Identity,
				Nickname:     slot.DisplayName,
				CardID:       slot.ID,
				Description:  slot.Description,
				GMNotes:      gmNotes(slot.ExternalID),
				ColorDiffuse: cardTint,
				Grid:         true,
				Snap:         true,
				Autoraise:    true,
				Sticky:       true,
				Tooltip:      true,
			})
		}
	}

	return SaveDocument{SaveName: saveName, ObjectStates: []DeckObject{obj}}
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc SaveDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("unable to encode save document: %w", err)
	}
	return nil
}

// Decode reads a save document, used to inspect earlier exports.
func Decode(r io.Reader) (SaveDocument, error) {
	var doc SaveDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return SaveDocument{}, fmt.Errorf("unable to decode save document: %w", err)
	}
	return doc, nil
}
