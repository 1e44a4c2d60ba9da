package admin

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/convoai/internal/service"
)

func ChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Inspect knowledge chunking",
		Long:  "Preview how knowledge text is split into chunks before indexing",
	}

	cmd.AddCommand(ChunksPreviewCmd())

	return cmd
}

func ChunksPreviewCmd() *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Preview chunk boundaries for a text file",
		Long:  "Split a text file the way the indexer would and print the resulting chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunksPreview(args[0], chunkSize)
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", service.DefaultChunkSize, "Target chunk size in characters")

	return cmd
}

func runChunksPreview(path string, chunkSize int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	chunks := service.ChunkText(string(data), chunkSize)
	if len(chunks) == 0 {
		fmt.Println("No chunks produced (empty input)")
		return nil
	}

	fmt.Printf("%d chunks (target size %d):\n\n", len(chunks), chunkSize)
	for i, chunk := range chunks {
		fmt.Printf("--- chunk %d (%d chars) ---\n%s\n\n", i, len(chunk), chunk)
	}

	return nil
}
