package audio

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

const (
	// SpeakerBufferSize is the speaker latency.
	SpeakerBufferSize = 250 * time.Millisecond
	// MinVolumeDB is the exponent used for the quietest audible volume.
	MinVolumeDB = -10.0
	// VolumeCurveExponent shapes the percent to exponent curve.
	VolumeCurveExponent = 0.5
	// resampleQuality is passed to beep.Resample.
	resampleQuality = 4
)

// Output plays decoded audio.
type Output interface {
	// Play starts playing s. onEnd is called once when s is exhausted; it
	// runs on the audio goroutine and must not block.
	Play(s beep.Streamer, format beep.Format, volume int, onEnd func()) error
	SetVolume(volume int)
	Clear()
	Close() error
}

// SpeakerOutput plays through the system audio device.
type SpeakerOutput struct {
	mu          sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate
	volume      *effects.Volume
}

// NewSpeakerOutput creates an output; the device is opened on first Play.
func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

// Play implements Output.
func (o *SpeakerOutput) Play(s beep.Streamer, format beep.Format, volume int, onEnd func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(SpeakerBufferSize)); err != nil {
			return errors.Wrap(err, "failed to initialize speaker")
		}
		o.initialized = true
		o.sampleRate = format.SampleRate
		zlog.Debug().Msgf("audio: speaker initialized: sample_rate=%d buffer=%v", format.SampleRate, SpeakerBufferSize)
	}

	if format.SampleRate != o.sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, o.sampleRate, s)
	}

	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   percentToExponent(float64(volume)),
		Silent:   volume <= 0,
	}

	speaker.Lock()
	o.volume = vol
	speaker.Unlock()

	speaker.Play(beep.Seq(vol, beep.Callback(onEnd)))
	return nil
}

// SetVolume implements Output.
func (o *SpeakerOutput) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized || o.volume == nil {
		return
	}

	speaker.Lock()
	o.volume.Volume = percentToExponent(float64(volume))
	o.volume.Silent = volume <= 0
	speaker.Unlock()
}

// Clear implements Output.
func (o *SpeakerOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return
	}
	speaker.Clear()
	o.volume = nil
}

// Close implements Output.
func (o *SpeakerOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	o.initialized = false
	o.volume = nil
	return nil
}

// percentToExponent maps a 0-100 volume to an effects.Volume exponent.
func percentToExponent(p float64) float64 {
	if p <= 0 {
		return MinVolumeDB
	}
	if p >= 100 {
		return 0
	}

	normalized := p / 100.0
	adjusted := math.Pow(normalized, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}
