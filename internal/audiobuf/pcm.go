package audiobuf

import "time"

const (
	SampleRatePCM16     = 24_000
	BytesPerSamplePCM16 = 2
)

func chunkSize(sampleRate int, sampleDuration time.Duration, bytesPerSample int, channels int) int {
	frames := int(float64(sampleRate) * sampleDuration.Seconds())
	return frames * bytesPerSample * channels
}

// BytesFor returns how many bytes of pcm16 mono audio cover d.
func BytesFor(d time.Duration) int {
	return chunkSize(SampleRatePCM16, d, BytesPerSamplePCM16, 1)
}

// Duration returns the playback length of n bytes of pcm16 mono audio.
func Duration(n int) time.Duration {
	perSecond := chunkSize(SampleRatePCM16, time.Second, BytesPerSamplePCM16, 1)
	return time.Duration(n) * time.Second / time.Duration(perSecond)
}
