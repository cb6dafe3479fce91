/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	// Accepted photo formats. Anything that is not already JPEG gets
	// re-encoded, since the PDF embeds JPEG only.
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const jpegQuality = 92

// Photo is a report photo normalized for embedding: intrinsic pixel
// dimensions plus JPEG bytes.
type Photo struct {
	Width  int
	Height int
	JPEG   []byte
}

// DecodePhoto accepts a base64 image payload, with or without a
// data-URL prefix, and normalizes it to JPEG. PNG and WebP uploads are
// decoded and re-encoded; JPEG passes through untouched.
func DecodePhoto(payload string) (Photo, error) {
	b64 := payload
	if strings.HasPrefix(payload, "data:") {
		_, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return Photo{}, fmt.Errorf("malformed data URL")
		}
		b64 = rest
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return Photo{}, fmt.Errorf("decode base64: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Photo{}, fmt.Errorf("unsupported image: %w", err)
	}
	if format == "jpeg" {
		return Photo{Width: cfg.Width, Height: cfg.Height, JPEG: raw}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Photo{}, fmt.Errorf("decode %s: %w", format, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Photo{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Photo{Width: cfg.Width, Height: cfg.Height, JPEG: buf.Bytes()}, nil
}

// DecodePhotos normalizes payloads one at a time, in order. Sequential
// decoding bounds memory: only one full-resolution image is in flight.
// The first failure aborts; callers treat that as fatal for the
// document being built.
func DecodePhotos(payloads []string) ([]Photo, error) {
	photos := make([]Photo, 0, len(payloads))
	for i, p := range payloads {
		ph, err := DecodePhoto(p)
		if err != nil {
			return nil, fmt.Errorf("photo %d: %w", i+1, err)
		}
		photos = append(photos, ph)
	}
	return photos, nil
}
