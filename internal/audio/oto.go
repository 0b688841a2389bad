package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

type otoOutput struct {
	player *oto.Player
}

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int
)

func sharedOtoContext(sampleRate, bufferSamples int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}
		if bufferSamples > 0 {
			op.BufferSize = bufferDuration(sampleRate, bufferSamples)
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoContextErr = fmt.Errorf("audio: oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

func openOto(sampleRate, bufferSamples int, source SampleSource) (*otoOutput, error) {
	ctx, err := sharedOtoContext(sampleRate, bufferSamples)
	if err != nil {
		return nil, err
	}
	pl := ctx.NewPlayer(NewMonoReader(source))
	if bufferSamples > 0 {
		pl.SetBufferSize(bufferSamples * 2)
	}
	return &otoOutput{player: pl}, nil
}

func (o *otoOutput) Play()  { o.player.Play() }
func (o *otoOutput) Pause() { o.player.Pause() }

func (o *otoOutput) Close() error {
	o.player.Pause()
	return o.player.Close()
}

func bufferDuration(sampleRate, samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
