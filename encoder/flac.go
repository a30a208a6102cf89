package encoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// EncodeFLAC compresses a whole recording for upload.
func EncodeFLAC(samples []int16) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFLAC(&buf, samples); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFLAC writes samples as a mono 16 kHz FLAC stream in BlockSize frames.
// The encoder picks a predictor per frame.
func WriteFLAC(w io.Writer, samples []int16) error {
	enc, err := flac.NewEncoder(w, &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      uint64(len(samples)),
	})
	if err != nil {
		return fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for start := 0; start < len(samples); start += BlockSize {
		block := samples[start:min(start+BlockSize, len(samples))]
		if err := enc.WriteFrame(monoFrame(block)); err != nil {
			enc.Close()
			return fmt.Errorf("writing flac frame at sample %d: %w", start, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing flac encoder: %w", err)
	}
	return nil
}

func monoFrame(block []int16) *frame.Frame {
	wide := make([]int32, len(block))
	for i, s := range block {
		wide[i] = int32(s)
	}
	return &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   wide,
			NSamples:  len(block),
		}},
	}
}
