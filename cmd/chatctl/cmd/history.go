package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

type historyMessage struct {
	ID         string    `json:"id"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sentAt"`
	Edited     bool      `json:"edited"`
	Deleted    bool      `json:"deleted"`
	DeletedBy  string    `json:"deletedBy"`
}

var historyCmd = &cobra.Command{
	Use:   "history <clubId>",
	Short: "Fetch a club's message history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clubID := args[0]

		endpoint, err := url.JoinPath(serverURL, "api", "clubs", clubID, "messages")
		if err != nil {
			return err
		}
		if historyLimit > 0 {
			endpoint += "?limit=" + strconv.Itoa(historyLimit)
		}

		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+authToken)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %s: %s", resp.Status, body)
		}

		var payload struct {
			Messages []historyMessage `json:"messages"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		for _, m := range payload.Messages {
			body := m.Body
			if m.Deleted {
				body = fmt.Sprintf("[deleted by %s]", m.DeletedBy)
			} else if m.Edited {
				body += " (edited)"
			}
			fmt.Printf("%s  %-20s %s\n", m.SentAt.Local().Format("15:04:05"), m.AuthorName, body)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum number of messages to fetch")
	rootCmd.AddCommand(historyCmd)
}
