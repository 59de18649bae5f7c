package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"
	"net"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/fusetg/lutbox/internal/config"
	"github.com/fusetg/lutbox/internal/discovery"
	"github.com/fusetg/lutbox/internal/lut"
	"github.com/fusetg/lutbox/internal/protocol"
	"github.com/fusetg/lutbox/internal/stream"
	"github.com/fusetg/lutbox/internal/tui"
)

// Shared flags
var (
	serverAddr  string
	channelName string
	lutSize     int
	lutType     string
	lutValue    float64
	inputPath   string
	outputPath  string
	wsAddr      string
	scanTimeout time.Duration
)

// generateCube builds a LUT from the --type and --value flags.
func generateCube(kind string, size int, value float64) (*lut.Cube, error) {
	switch kind {
	case "identity":
		return lut.Identity(size)
	case "gamma":
		if value == 0 {
			value = 2.2
		}
		return lut.Gamma(size, value)
	case "contrast":
		return lut.Contrast(size, value)
	case "desaturate":
		if value == 0 {
			value = 1.0
		}
		return lut.Desaturate(size, value)
	case "hue-rotate":
		return lut.HueRotate(size, value)
	case "warm":
		if value == 0 {
			value = 1.0
		}
		return lut.WarmShift(size, value)
	default:
		return nil, fmt.Errorf("unknown LUT type %q (identity, gamma, contrast, desaturate, hue-rotate, warm)", kind)
	}
}

// loadCube reads a raw little-endian float32 RGB blob and infers the
// cube size from its length.
func loadCube(path string) (*lut.Cube, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%s: length %d is not a multiple of 4", path, len(blob))
	}
	data := make([]float32, len(blob)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	size, err := lut.InferSize(len(data), 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lut.NewCube(size, 3, data)
}

// resolveCube picks between --input and the generator flags.
func resolveCube() (*lut.Cube, error) {
	if inputPath != "" {
		return loadCube(inputPath)
	}
	return generateCube(lutType, lutSize, lutValue)
}

// Send command

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a LUT to a running server",
	Long: `Send one LUT update over the OpenGradeIO protocol and wait for the
server's acknowledgement.

The LUT is either generated (--type with optional --value) or read from
a raw float32 file (--input).`,
	Example: `  # Send a 33-point identity LUT to the default channel
  lutbox send --addr 127.0.0.1:8089

  # Send a gamma 2.4 LUT to the "beauty" channel
  lutbox send --addr 127.0.0.1:8089 --channel beauty --type gamma --value 2.4

  # Send a LUT from a raw float32 file
  lutbox send --addr 127.0.0.1:8089 --input grade.f32

  # Find the server via mDNS instead of naming it
  lutbox send --discover --type contrast --value 1.2`,
	RunE: runSend,
}

var useDiscovery bool

func init() {
	sendCmd.Flags().StringVar(&serverAddr, "addr", "127.0.0.1:8089", "Server address (host:port)")
	sendCmd.Flags().BoolVar(&useDiscovery, "discover", false, "Resolve the server via mDNS instead of --addr")
	sendCmd.Flags().StringVar(&channelName, "channel", "", "Channel name (empty = default channel)")
	sendCmd.Flags().IntVar(&lutSize, "size", 33, "LUT edge size")
	sendCmd.Flags().StringVar(&lutType, "type", "identity", "Generated LUT type")
	sendCmd.Flags().Float64Var(&lutValue, "value", 0, "Parameter for the generated LUT type")
	sendCmd.Flags().StringVar(&inputPath, "input", "", "Raw float32 RGB file to send instead of generating")
}

func runSend(cmd *cobra.Command, args []string) error {
	cube, err := resolveCube()
	if err != nil {
		return err
	}

	if useDiscovery {
		instances, err := discovery.Scan(discovery.DefaultBrowseTimeout)
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			return fmt.Errorf("no LUT servers found via mDNS")
		}
		serverAddr = instances[0].Addr()
		fmt.Printf("Discovered %s at %s\n", instances[0].Name, serverAddr)
	}

	doc, err := protocol.EncodeLUTUpdate("grading", channelName, cube.Size, cube.Channels, cube.Data)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", serverAddr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(doc); err != nil {
		return fmt.Errorf("failed to send update: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	framer := protocol.NewFramer(0)
	buf := make([]byte, 4096)
	for {
		reply, err := framer.Next()
		if err != nil {
			return fmt.Errorf("invalid reply: %w", err)
		}
		if reply != nil {
			ok, errMsg, err := protocol.DecodeReply(reply)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("server rejected update: %s", errMsg)
			}
			channel := channelName
			if channel == "" {
				channel = protocol.DefaultChannel
			}
			fmt.Printf("Sent %d-point LUT to channel %q at %s\n", cube.Size, channel, serverAddr)
			return nil
		}
		n, err := conn.Read(buf)
		if err != nil {
			return fmt.Errorf("failed to read reply: %w", err)
		}
		framer.Feed(buf[:n])
	}
}

// Gen command

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a LUT file",
	Long: `Generate a LUT and write it as a raw little-endian float32 RGB blob,
ordered with blue varying fastest. Use --png to also write an image
preview in the stream's flat layout.`,
	Example: `  # 33-point identity LUT
  lutbox gen --size 33 --output identity.f32

  # Desaturation LUT with a PNG preview
  lutbox gen --type desaturate --value 0.8 --output mono.f32 --png mono.png`,
	RunE: runGen,
}

var genPNGPath string

func init() {
	genCmd.Flags().IntVar(&lutSize, "size", 33, "LUT edge size")
	genCmd.Flags().StringVar(&lutType, "type", "identity", "Generated LUT type")
	genCmd.Flags().Float64Var(&lutValue, "value", 0, "Parameter for the generated LUT type")
	genCmd.Flags().StringVar(&outputPath, "output", "lut.f32", "Output file for the raw float32 blob")
	genCmd.Flags().StringVar(&genPNGPath, "png", "", "Optional PNG preview path")
}

func runGen(cmd *cobra.Command, args []string) error {
	cube, err := generateCube(lutType, lutSize, lutValue)
	if err != nil {
		return err
	}

	blob := make([]byte, len(cube.Data)*4)
	for i, v := range cube.Data {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	if err := os.WriteFile(outputPath, blob, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d-point %s LUT to %s (%d values)\n", cube.Size, lutType, outputPath, len(cube.Data))

	if genPNGPath != "" {
		img, err := lut.NewConverter().Convert(cube)
		if err != nil {
			return err
		}
		if err := savePNG(genPNGPath, img.Width, img.Height, img.Channels, img.Pixels); err != nil {
			return err
		}
		fmt.Printf("Wrote preview to %s (%dx%d)\n", genPNGPath, img.Width, img.Height)
	}
	return nil
}

// Preview command

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Export a live stream frame as PNG",
	Long: `Subscribe to a channel on the server's websocket backend, wait for
one frame, and write it as a PNG image.

Values outside [0, 1] are clamped for the 8-bit preview; the stream
itself carries full-range float data.`,
	Example: `  # Preview the default channel
  lutbox preview --ws 127.0.0.1:8090 --stream vglb-lut-default --output frame.png`,
	RunE: runPreview,
}

var previewStream string

func init() {
	previewCmd.Flags().StringVar(&wsAddr, "ws", "127.0.0.1:8090", "WebSocket backend address (host:port)")
	previewCmd.Flags().StringVar(&previewStream, "stream", "vglb-lut-default", "Stream name to subscribe to")
	previewCmd.Flags().StringVar(&outputPath, "output", "frame.png", "Output PNG path")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := stream.Subscribe(ctx, wsAddr, previewStream)
	if err != nil {
		return err
	}
	defer sub.Close()

	frame, err := sub.Next()
	if err != nil {
		return fmt.Errorf("failed to receive frame: %w", err)
	}
	header := frame.Header
	if err := savePNG(outputPath, header.Width, header.Height, header.Channels, frame.Pixels); err != nil {
		return err
	}
	fmt.Printf("Wrote frame %d of %s to %s (%dx%d, %d channels)\n",
		header.Seq, header.Stream, outputPath, header.Width, header.Height, header.Channels)
	return nil
}

// savePNG writes a float pixel buffer as an 8-bit PNG.
func savePNG(path string, width, height, channels int, pixels []float32) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * channels
			a := uint8(255)
			if channels == 4 {
				a = quantize(pixels[base+3])
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: quantize(pixels[base]),
				G: quantize(pixels[base+1]),
				B: quantize(pixels[base+2]),
				A: a,
			})
		}
	}
	return imaging.Save(img, path)
}

// quantize clamps to [0, 1] and scales to 8 bits.
func quantize(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Discover command

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find LUT servers on the local network",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultBrowseTimeout, "How long to browse for servers")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Browsing for %s services (%s)...\n", discovery.ServiceType, scanTimeout)
	instances, err := discovery.Scan(scanTimeout)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Println("No servers found.")
		return nil
	}
	for _, inst := range instances {
		fmt.Printf("  %-32s %s", inst.Name, inst.Addr())
		if backend := inst.Metadata["backend"]; backend != "" {
			fmt.Printf("  backend=%s", backend)
		}
		if prefix := inst.Metadata["prefix"]; prefix != "" {
			fmt.Printf("  prefix=%s", prefix)
		}
		fmt.Println()
	}
	return nil
}

// Watch command

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live dashboard of server channels",
	Long: `Open a terminal dashboard showing every active LUT channel on the
server's websocket backend, updating as frames arrive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.RunWatch(wsAddr)
	},
}

func init() {
	watchCmd.Flags().StringVar(&wsAddr, "ws", "127.0.0.1:8090", "WebSocket backend address (host:port)")
}

// Info command

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration paths and defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("Config file:   %s\n", path)
		fmt.Printf("Server:        %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("Backend:       %s (available: %v)\n", cfg.Stream.Backend, stream.Available())
		fmt.Printf("Stream prefix: %s\n", cfg.Stream.Prefix)
		fmt.Printf("WS listen:     %s\n", cfg.Stream.WSListen)
		return nil
	},
}
