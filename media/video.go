package media

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/asticode/go-astiav"
	"go.uber.org/zap"
)

// ExtractFrame decodes one frame from the video at urlStr.
// position is "first", "half", "last" or a time in seconds (e.g. "30.5").
func ExtractFrame(logger *zap.Logger, urlStr string, position string) (image.Image, error) {
	inputFormatContext := astiav.AllocFormatContext()
	if inputFormatContext == nil {
		return nil, fmt.Errorf("failed to allocate format context")
	}
	defer inputFormatContext.Free()

	formatOptions := astiav.NewDictionary()
	defer formatOptions.Free()

	// MOV files need a longer probe to find their codec.
	formatOptions.Set("analyzeduration", "100000000", 0)
	formatOptions.Set("probesize", "50000000", 0)

	if err := inputFormatContext.OpenInput(urlStr, nil, formatOptions); err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer inputFormatContext.CloseInput()

	if err := inputFormatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("failed to find stream info: %w", err)
	}

	var videoStream *astiav.Stream
	for _, stream := range inputFormatContext.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			videoStream = stream
			break
		}
	}

	if videoStream == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	targetTime, err := frameTargetTime(float64(inputFormatContext.Duration())/1000000.0, position)
	if err != nil {
		return nil, err
	}

	codec := astiav.FindDecoder(videoStream.CodecParameters().CodecID())
	if codec == nil {
		return nil, fmt.Errorf("failed to find decoder")
	}

	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return nil, fmt.Errorf("failed to allocate codec context")
	}
	defer codecContext.Free()

	if err := codecContext.FromCodecParameters(videoStream.CodecParameters()); err != nil {
		return nil, fmt.Errorf("failed to copy codec parameters: %w", err)
	}

	if err := codecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("failed to open codec: %w", err)
	}

	packet := astiav.AllocPacket()
	defer packet.Free()

	frame := astiav.AllocFrame()
	defer frame.Free()

	var (
		lastFrame   image.Image
		closest     image.Image
		closestDiff float64
	)

	for {
		if err := inputFormatContext.ReadFrame(packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}

		if packet.StreamIndex() != videoStream.Index() {
			packet.Unref()
			continue
		}

		if err := codecContext.SendPacket(packet); err != nil {
			packet.Unref()
			return nil, fmt.Errorf("failed to send packet: %w", err)
		}
		packet.Unref()

		if err := codecContext.ReceiveFrame(frame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				continue
			}
			return nil, fmt.Errorf("failed to receive frame: %w", err)
		}

		if data, _ := frame.Data().Bytes(1); len(data) == 0 {
			continue
		}

		img, err := frameToImage(frame)
		if err != nil {
			logger.Debug("skipping undecodable frame", zap.Error(err))
			continue
		}

		if position == "first" {
			return img, nil
		}
		lastFrame = img

		if targetTime >= 0 {
			currentTime := float64(frame.Pts()) * float64(videoStream.TimeBase().Num()) / float64(videoStream.TimeBase().Den())
			diff := currentTime - targetTime
			if diff < 0 {
				diff = -diff
			}
			if closest == nil || diff < closestDiff {
				closest = img
				closestDiff = diff
			}
		}
	}

	if closest != nil {
		return closest, nil
	}
	if lastFrame != nil {
		return lastFrame, nil
	}

	return nil, fmt.Errorf("no video frames found")
}

// frameTargetTime returns the wanted timestamp in seconds, or -1 for "last".
func frameTargetTime(duration float64, position string) (float64, error) {
	switch position {
	case "first":
		return 0, nil
	case "last":
		return -1, nil
	case "half":
		return duration / 2, nil
	}
	if t, err := strconv.ParseFloat(strings.TrimSpace(position), 64); err == nil && t >= 0 {
		return t, nil
	}
	return 0, fmt.Errorf("invalid frame position: %s", position)
}

func frameToImage(frame *astiav.Frame) (image.Image, error) {
	if frame.Width() <= 0 || frame.Height() <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", frame.Width(), frame.Height())
	}

	img, err := frame.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("failed to guess image format: %w", err)
	}

	if err := frame.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("failed to convert frame to image: %w", err)
	}

	return img, nil
}
