package transcode

import (
	"context"
	"testing"
)

func BenchmarkTranscodeConvert(b *testing.B) {
	source := buildTestPNG(b, 1920, 1080)
	tc := newTestTranscoder(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tc.Transcode(context.Background(), source, nil); err != nil {
			b.Fatalf("transcode: %v", err)
		}
	}
}

func BenchmarkTranscodeResize(b *testing.B) {
	source := buildTestPNG(b, 1920, 1080)
	tc := newTestTranscoder(b)
	target := &Target{Width: 640, Height: 360}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tc.Transcode(context.Background(), source, target); err != nil {
			b.Fatalf("transcode: %v", err)
		}
	}
}
