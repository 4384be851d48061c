package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"youtube-transcription-service/internal/logger"
	"youtube-transcription-service/internal/pipeline"
	"youtube-transcription-service/internal/utils"
	"youtube-transcription-service/internal/youtube"
)

// pythonPackages are installed by the setup command.
var pythonPackages = []string{
	"whisperx",
	"youtube-transcript-api",
	"llama-cpp-python",
	"huggingface_hub",
}

var rootCmd = &cobra.Command{
	Use:   "youtube-transcription-service",
	Short: "Turn YouTube videos into summarization prompts",
	Long: `Serves POST /transcribe for the browser extension: fetches video details and a
transcript (YouTube captions or local whisper), builds a summarization prompt and
optionally runs it through a local or remote LLM.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt [URL]",
	Short: "Build the prompt for one video and print it",
	Example: `  youtube-transcription-service prompt "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  youtube-transcription-service prompt dQw4w9WgXcQ --method whisper --model large-v2
  youtube-transcription-service prompt https://youtu.be/dQw4w9WgXcQ --local --runner gemini`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logFile, err := startup(false)
		if err != nil {
			return err
		}
		defer logFile.Close()

		if copyFlag, _ := cmd.Flags().GetBool("copy"); copyFlag {
			cfg.CopyToClipboard = true
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		method, _ := cmd.Flags().GetString("method")
		model, _ := cmd.Flags().GetString("model")
		local, _ := cmd.Flags().GetBool("local")
		runner, _ := cmd.Flags().GetString("runner")

		res, err := a.pipeline.Process(cmd.Context(), pipeline.Request{
			URL:                 videoURL(args[0]),
			TranscriptionMethod: method,
			WhisperModel:        model,
			ProcessLocally:      local,
			LLMRunner:           runner,
		})
		if err != nil {
			return err
		}
		if res.Response != "" {
			fmt.Println(res.Response)
		} else {
			fmt.Println(res.Prompt)
		}
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the python virtual environment and install helper packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logFile, err := startup(true)
		if err != nil {
			return err
		}
		defer logFile.Close()

		log.Printf("Installing %v into %s (this can take a while)", pythonPackages, cfg.VenvDir())
		if err := utils.InstallPythonPackages(cmd.Context(), cfg.VenvDir(), pythonPackages...); err != nil {
			return err
		}
		log.Printf("Python helpers installed. Set PYTHON_PATH=%s or leave it empty to use the venv.", utils.VenvPython(cfg.VenvDir()))
		return nil
	},
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the Windows service",
}

func serviceAction(use, short string, fn func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fn(); err != nil {
				return err
			}
			fmt.Printf("%s: %s done\n", serviceName, use)
			return nil
		},
	}
}

func init() {
	promptCmd.Flags().String("method", pipeline.MethodYouTube, "transcription method: youtube or whisper")
	promptCmd.Flags().String("model", "", "whisper model (default WHISPER_MODEL)")
	promptCmd.Flags().Bool("local", false, "run the prompt through an LLM and print its answer")
	promptCmd.Flags().String("runner", "", "LLM runner: local, gemini, openai or browser (default LLM_RUNNER)")
	promptCmd.Flags().Bool("copy", false, "copy the prompt to the clipboard")

	serviceCmd.AddCommand(
		serviceAction("install", "Install the Windows service", installService),
		serviceAction("remove", "Remove the Windows service", removeService),
		serviceAction("start", "Start the Windows service", startService),
		serviceAction("stop", "Stop the Windows service", stopService),
	)

	rootCmd.AddCommand(serveCmd, promptCmd, setupCmd, serviceCmd)
}

// serve runs the API in the foreground until SIGINT or SIGTERM.
func serve(ctx context.Context) error {
	cfg, logFile, err := startup(true)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runServer(ctx, cfg, 30*time.Second); err != nil {
		logger.LogError("%v", err)
		return err
	}
	return nil
}

// videoURL accepts a bare video ID on the command line.
func videoURL(arg string) string {
	if len(arg) == 11 && !strings.ContainsAny(arg, "/.:") {
		return youtube.WatchURL(arg)
	}
	return arg
}

func main() {
	if isWindowsService() {
		runAsService()
		return
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
