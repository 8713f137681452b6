package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"spendview/internal/app"
	"spendview/internal/config"
	"spendview/internal/domain"
	"spendview/internal/logging"
	"spendview/internal/service"
)

const helpText = `Comandos:
  <texto>                      pregunta solo texto
  /image <archivo> [pregunta]  envia una foto del ticket
  /audio <archivo> [pregunta]  envia una nota de voz
  /history                     ultimas interacciones de esta sesion
  /help                        muestra esta ayuda
  /quit                        salir`

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(logging.Options{Level: "warn", File: cfg.LogFile})
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	session, err := application.Sessions.Issue()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("===== SpendView CLI =====")
	fmt.Printf("Sesion: %s\n", session.ID)
	for name, active := range application.Services() {
		if !active {
			fmt.Printf("  (%s deshabilitado)\n", name)
		}
	}
	fmt.Println(helpText)

	for {
		fmt.Print("\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch cmd, rest := splitCommand(line); cmd {
		case "/quit", "/exit":
			return
		case "/help":
			fmt.Println(helpText)
		case "/history":
			printHistory(ctx, application.History, session.ID)
		case "/image", "/audio":
			path, question := splitCommand(rest)
			if path == "" {
				fmt.Printf("Uso: %s <archivo> [pregunta]\n", cmd)
				continue
			}
			upload, err := loadUpload(path)
			if err != nil {
				fmt.Printf("No se pudo leer %s: %v\n", path, err)
				continue
			}
			in := domain.AskInput{SessionID: session.ID, Question: question, UserAgent: "spendview-cli"}
			if cmd == "/image" {
				in.Image = upload
			} else {
				in.Audio = upload
			}
			ask(ctx, application.Interactions, in)
		default:
			ask(ctx, application.Interactions, domain.AskInput{SessionID: session.ID, Question: line, UserAgent: "spendview-cli"})
		}
	}
}

func ask(ctx context.Context, svc *service.InteractionService, in domain.AskInput) {
	fmt.Println("Procesando...")
	res, err := svc.Ask(ctx, in)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if res.Transcription != "" {
		fmt.Printf("Transcripcion: %s\n", res.Transcription)
	}
	if res.Interaction.ImageURL != "" {
		fmt.Printf("Imagen: %s\n", res.Interaction.ImageURL)
	}
	fmt.Printf("\nSpendView:\n%s\n", res.Interaction.Answer)
}

func printHistory(ctx context.Context, history *service.HistoryService, sessionID string) {
	items, err := history.ListRecent(ctx, sessionID, 0)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			fmt.Println("Historial deshabilitado (sin store configurado).")
			return
		}
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		fmt.Println("Sin interacciones todavia.")
		return
	}
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		input := it.UserInput
		if input == "" && it.HasImage() {
			input = "(imagen)"
		}
		fmt.Printf("[%s] %s\n    -> %s\n", it.CreatedAt.Local().Format("2006-01-02 15:04"), input, firstLine(it.Answer))
	}
}

func loadUpload(path string) (*domain.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return &domain.Upload{
		Filename:    name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Data:        data,
	}, nil
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " ..."
	}
	return s
}
