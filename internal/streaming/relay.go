package streaming

import (
	"context"
	"encoding/base64"

	"github.com/ebuka1017/Robin/internal/logging"
)

// inputRelay pumps inbound client frames to the model transport: one
// audioInput event per binary frame, no batching, no reordering. A
// control message of kind "end", a client disconnect, or transport
// closure all terminate the relay.
type inputRelay struct {
	conn        ClientConn
	writer      *sessionWriter
	promptName  string
	contentName string
	log         *logging.Logger
}

// run consumes frames until the client ends the stream or a read/send
// fails. It returns nil on a clean end signal and the terminating error
// otherwise; either way the coordinator proceeds to teardown.
func (r *inputRelay) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := r.conn.NextFrame()
		if err != nil {
			r.log.Debug().Err(err).Msg("client read ended")
			return err
		}

		switch {
		case frame.Control != nil:
			if frame.Control.Type == ControlEnd {
				r.log.Debug().Msg("client signaled end of audio")
				return nil
			}
			// Unrecognized control messages are skipped.

		case len(frame.Audio) > 0:
			encoded := base64.StdEncoding.EncodeToString(frame.Audio)
			if err := r.writer.sendEvent(ctx, NewAudioInput(r.promptName, r.contentName, encoded)); err != nil {
				r.log.Debug().Err(err).Msg("audio forward failed")
				return err
			}
		}
	}
}
