// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package delivery

import (
	"time"

	"github.com/tomtom215/killfeed/internal/models"
)

// MessagePayload is the body of a Discord channel message or webhook call.
type MessagePayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed object.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedImage is an embed thumbnail or image.
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedFooter represents the footer of a Discord embed.
type EmbedFooter struct {
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedAuthor represents the author of a Discord embed.
type EmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedField represents a field in a Discord embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// ToEmbed converts a notification document into a Discord embed.
func ToEmbed(doc *models.NotificationDocument) Embed {
	embed := Embed{
		Title:       doc.Title,
		Description: doc.Description,
		URL:         doc.URL,
		Color:       doc.Color,
	}
	if !doc.Timestamp.IsZero() {
		embed.Timestamp = doc.Timestamp.UTC().Format(time.RFC3339)
	}
	if doc.Thumbnail != nil {
		embed.Thumbnail = &EmbedImage{URL: doc.Thumbnail.URL}
	}
	if doc.Footer != nil {
		embed.Footer = &EmbedFooter{Text: doc.Footer.Text, IconURL: doc.Footer.IconURL}
	}
	if doc.Author != nil {
		embed.Author = &EmbedAuthor{Name: doc.Author.Name, URL: doc.Author.URL, IconURL: doc.Author.IconURL}
	}
	for _, f := range doc.Fields {
		embed.Fields = append(embed.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return embed
}
