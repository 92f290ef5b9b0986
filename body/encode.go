/*
mailstore - A local mail-store library for RFC 2822 messages.
Copyright © 2026 mailstore contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package body

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Decoded returns a Body whose transfer-encoding is "none" and whose type
// is "text/plain; charset=us-ascii" (or the caller-specified mimeType/
// charset, if non-empty), decoding quoted-printable/base64 content and
// transcoding non-ASCII charsets via golang.org/x/text. If the body is
// already decoded with a matching type, it is returned unchanged (same
// object).
func (b *Body) Decoded(mimeType, charset string) (*Body, error) {
	if mimeType == "" {
		mimeType = "text/plain"
	}
	if charset == "" {
		charset = "us-ascii"
	}

	if b.encoding == "none" && strings.EqualFold(b.mimeType, mimeType) && strings.EqualFold(b.charset, charset) {
		return b, nil
	}

	raw, err := b.rawBytes()
	if err != nil {
		return nil, err
	}

	decoded, err := decodeTransferEncoding(raw, b.encoding)
	if err != nil {
		return nil, fmt.Errorf("body: decode transfer-encoding %q: %w", b.encoding, err)
	}

	if b.charset != "" && !strings.EqualFold(b.charset, "us-ascii") && !strings.EqualFold(b.charset, "utf-8") {
		decoded, err = transcodeToUTF8(decoded, b.charset)
		if err != nil {
			return nil, fmt.Errorf("body: transcode charset %q: %w", b.charset, err)
		}
	}

	nb := New(StringContent(decoded), mimeType, "none")
	nb.charset = charset
	nb.disposition = b.disposition
	nb.eol = b.eol
	nb.checked = true
	return nb, nil
}

// Encode returns a Body matching the requested (mimeType, charset,
// transferEncoding) triple, applying the requested transfer-encoding to
// the body's current decoded content. Message attachment triggers this
// automatically to guarantee printable-on-the-wire content.
func (b *Body) Encode(mimeType, charset, transferEncoding string) (*Body, error) {
	if b.encoding == transferEncoding && strings.EqualFold(b.mimeType, mimeType) && strings.EqualFold(b.charset, charset) {
		return b, nil
	}

	raw, err := b.rawBytes()
	if err != nil {
		return nil, err
	}
	// Always start from fully decoded bytes before re-encoding, so a
	// base64→quoted-printable conversion doesn't double-encode.
	if b.encoding != "" && b.encoding != "none" {
		raw, err = decodeTransferEncoding(raw, b.encoding)
		if err != nil {
			return nil, err
		}
	}

	encoded, err := encodeTransferEncoding(raw, transferEncoding)
	if err != nil {
		return nil, fmt.Errorf("body: encode transfer-encoding %q: %w", transferEncoding, err)
	}

	nb := New(StringContent(encoded), mimeType, transferEncoding)
	nb.charset = charset
	nb.disposition = b.disposition
	nb.eol = b.eol
	nb.checked = true
	return nb, nil
}

func (b *Body) rawBytes() (string, error) {
	return b.String()
}

func decodeTransferEncoding(raw, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "7bit", "8bit", "binary", "none":
		return raw, nil
	case "quoted-printable":
		out, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw)))
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "base64":
		out, err := base64.StdEncoding.DecodeString(stripBase64Whitespace(raw))
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown transfer-encoding %q", encoding)
	}
}

func encodeTransferEncoding(raw, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "7bit", "8bit", "binary", "none":
		return raw, nil
	case "quoted-printable":
		var buf bytes.Buffer
		w := quotedprintable.NewWriter(&buf)
		if _, err := w.Write([]byte(raw)); err != nil {
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", err
		}
		return buf.String(), nil
	case "base64":
		return base64.StdEncoding.EncodeToString([]byte(raw)), nil
	default:
		return "", fmt.Errorf("unknown transfer-encoding %q", encoding)
	}
}

func stripBase64Whitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

// transcodeToUTF8 converts raw from charset to UTF-8 using
// golang.org/x/text/encoding's registry (htmlindex covers the names that
// actually appear in mail Content-Type charset parameters).
func transcodeToUTF8(raw, charset string) (string, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	out, err := enc.NewDecoder().String(raw)
	if err != nil {
		return "", err
	}
	return out, nil
}
