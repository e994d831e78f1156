package gateway

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alexivanou/roamai/internal/voice"
	"google.golang.org/genai"
)

const liveInstruction = "You are transcribing a short travel command. Just listen and transcribe what the user says."

var audioMIMEType = "audio/pcm;rate=" + strconv.Itoa(voice.SampleRate)

// LiveDialer opens streaming transcription channels on the Live API
type LiveDialer struct {
	client *genai.Client
	model  string
}

// NewLiveDialer creates a dialer for the given live model
func NewLiveDialer(client *genai.Client, model string) *LiveDialer {
	return &LiveDialer{client: client, model: model}
}

// Dial connects a new live session with input transcription enabled
func (d *LiveDialer) Dial(ctx context.Context) (voice.Channel, error) {
	session, err := d.client.Live.Connect(ctx, d.model, &genai.LiveConnectConfig{
		ResponseModalities:      []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SystemInstruction:       genai.NewContentFromText(liveInstruction, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("live connect: %w", err)
	}
	return &liveChannel{session: session}, nil
}

type liveChannel struct {
	session *genai.Session
}

func (c *liveChannel) Send(pcm []byte) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: audioMIMEType, Data: pcm},
	})
}

func (c *liveChannel) Recv() (voice.Message, error) {
	msg, err := c.session.Receive()
	if err != nil {
		return voice.Message{}, err
	}
	return liveMessage(msg), nil
}

func (c *liveChannel) Close() error {
	return c.session.Close()
}

func liveMessage(msg *genai.LiveServerMessage) voice.Message {
	var out voice.Message
	if msg == nil || msg.ServerContent == nil {
		return out
	}
	if t := msg.ServerContent.InputTranscription; t != nil {
		out.Transcript = t.Text
	}
	out.TurnComplete = msg.ServerContent.TurnComplete
	return out
}
