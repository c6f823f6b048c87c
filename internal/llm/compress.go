package llm

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // cameras occasionally upload PNG stills
)

const (
	// DefaultImageBudget is the target payload size sent to providers.
	DefaultImageBudget = 25 * 1024

	startQuality = 85
	qualityStep  = 5
	// Re-encoding stops once quality would drop to this floor.
	qualityFloor = 20
)

// CompressImage re-encodes data as JPEG at decreasing quality until it fits in
// budget bytes. Payloads already within budget are returned unchanged. If the
// floor is reached the smallest attempt is returned without error.
func CompressImage(data []byte, budget int) ([]byte, error) {
	if budget <= 0 {
		budget = DefaultImageBudget
	}
	if len(data) <= budget {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image for compression: %w", err)
	}

	out := data
	for quality := startQuality; quality > qualityFloor; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg quality=%d: %w", quality, err)
		}
		out = buf.Bytes()
		if len(out) <= budget {
			break
		}
	}
	return out, nil
}
