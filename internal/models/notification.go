// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import (
	"fmt"
	"time"

	"github.com/tomtom215/killfeed/internal/validation"
)

// NotificationDocument is a platform-agnostic rich message. Delivery adapters
// translate it to their own payload (a Discord embed, a webhook body).
// Limits mirror the strictest supported platform.
type NotificationDocument struct {
	Kind        ChannelKind     `json:"kind"`
	Title       string          `json:"title" validate:"required,max=256"`
	Description string          `json:"description,omitempty" validate:"max=4096"`
	URL         string          `json:"url,omitempty" validate:"omitempty,url"`
	Color       int             `json:"color" validate:"gte=0,lte=16777215"`
	Timestamp   time.Time       `json:"timestamp"`
	Thumbnail   *DocumentImage  `json:"thumbnail,omitempty"`
	Author      *DocumentAuthor `json:"author,omitempty"`
	Footer      *DocumentFooter `json:"footer,omitempty"`
	Fields      []DocumentField `json:"fields,omitempty" validate:"max=25,dive"`
}

// DocumentImage is an image reference.
type DocumentImage struct {
	URL string `json:"url" validate:"required,url"`
}

// DocumentAuthor is the header line of a document.
type DocumentAuthor struct {
	Name    string `json:"name" validate:"required,max=256"`
	URL     string `json:"url,omitempty" validate:"omitempty,url"`
	IconURL string `json:"icon_url,omitempty" validate:"omitempty,url"`
}

// DocumentFooter is the trailing line of a document.
type DocumentFooter struct {
	Text    string `json:"text" validate:"required,max=2048"`
	IconURL string `json:"icon_url,omitempty" validate:"omitempty,url"`
}

// DocumentField is a labelled value.
type DocumentField struct {
	Name   string `json:"name" validate:"required,max=256"`
	Value  string `json:"value" validate:"required,max=1024"`
	Inline bool   `json:"inline"`
}

// Validate checks the document against platform limits.
func (d *NotificationDocument) Validate() error {
	if d == nil {
		return fmt.Errorf("nil notification document")
	}
	if err := validation.ValidateStruct(d); err != nil {
		return fmt.Errorf("notification document: %w", err)
	}
	return nil
}
