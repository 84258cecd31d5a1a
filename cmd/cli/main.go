package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var bcryptGenerate = bcrypt.GenerateFromPassword

// apiClient talks to the booklend HTTP API.
type apiClient struct {
	baseURL string
	token   string
	timeout time.Duration
}

// apiError is returned for non-2xx responses.
type apiError struct {
	Status int
	Msg    string
}

func (e *apiError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Msg, e.Status)
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, strings.TrimRight(c.baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("x-auth-token", c.token)
	}

	resp, err := (&http.Client{Timeout: c.timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Msg string `json:"msg"`
		}
		_ = json.Unmarshal(raw, &e)
		return &apiError{Status: resp.StatusCode, Msg: e.Msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

type book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Available bool   `json:"available"`
}

type loan struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	BookID     string     `json:"bookId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	ReturnedAt *time.Time `json:"returnedAt"`
}

type historyEntry struct {
	LoanID string `json:"loanId"`
	BookID string `json:"bookId"`
	Book   *struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	} `json:"book"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	ReturnedAt *time.Time `json:"returnedAt"`
}

type consistencyReport struct {
	Consistent    bool `json:"consistent"`
	TotalBooks    int  `json:"totalBooks"`
	OpenLoans     int  `json:"openLoans"`
	Repaired      int  `json:"repaired"`
	Discrepancies []struct {
		BookID            string `json:"bookId"`
		RecordedAvailable bool   `json:"recordedAvailable"`
		DerivedAvailable  bool   `json:"derivedAvailable"`
	} `json:"discrepancies"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	client := &apiClient{}

	rootCmd := &cobra.Command{
		Use:           "booklend-cli",
		Short:         "Booklend CLI tool",
		Long:          `A command line interface for interacting with the booklend lending API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&client.baseURL, "url", "http://localhost:8080", "Base URL of the booklend API")
	rootCmd.PersistentFlags().StringVar(&client.token, "token", os.Getenv("BOOKLEND_TOKEN"), "Auth token (defaults to $BOOKLEND_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&client.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		loginCmd(client),
		booksCmd(client),
		borrowCmd(client),
		returnCmd(client),
		historyCmd(client),
		borrowedCmd(client),
		ledgerCmd(client),
		hashPasswordCmd(),
	)
	return rootCmd
}

func loginCmd(c *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Obtain an auth token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Token string `json:"token"`
			}
			body := map[string]string{"username": args[0], "password": args[1]}
			if err := c.do(http.MethodPost, "/api/v1/auth/login", body, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
}

func booksCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Catalog operations",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}
			if offset > 0 {
				q.Set("offset", fmt.Sprint(offset))
			}
			path := "/api/v1/books"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var books []book
			if err := c.do(http.MethodGet, path, nil, &books); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tAVAILABLE")
			for _, b := range books {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", b.ID, truncate(b.Title, 40), truncate(b.Author, 24), b.Available)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	var isbn string
	add := &cobra.Command{
		Use:   "add <title> <author>",
		Short: "Add a book (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var created book
			body := map[string]string{"title": args[0], "author": args[1], "isbn": isbn}
			if err := c.do(http.MethodPost, "/api/v1/books", body, &created); err != nil {
				return err
			}
			printJSONTo(cmd.OutOrStdout(), created)
			return nil
		},
	}
	add.Flags().StringVar(&isbn, "isbn", "", "ISBN-10 or ISBN-13")

	remove := &cobra.Command{
		Use:   "remove <bookId>",
		Short: "Remove a book (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.do(http.MethodDelete, "/api/v1/books/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Book removed")
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func loanCommand(c *apiClient, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <userId> <bookId>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Msg  string `json:"msg"`
				Loan *loan  `json:"loan"`
			}
			body := map[string]string{"userId": args[0], "bookId": args[1]}
			if err := c.do(http.MethodPost, path, body, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Msg)
			if resp.Loan != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Loan: %s\n", resp.Loan.ID)
			}
			return nil
		},
	}
}

func borrowCmd(c *apiClient) *cobra.Command {
	return loanCommand(c, "borrow", "Borrow a book for a user", "/api/v1/users/borrow")
}

func returnCmd(c *apiClient) *cobra.Command {
	return loanCommand(c, "return", "Return a borrowed book", "/api/v1/users/return")
}

func historyCmd(c *apiClient) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "history <userId>",
		Short: "Show a user's borrowing history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/users/" + url.PathEscape(args[0]) + "/history"
			if pageSize > 0 {
				path += fmt.Sprintf("?pageSize=%d", pageSize)
			}

			var entries []historyEntry
			if err := c.do(http.MethodGet, path, nil, &entries); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BOOK\tTITLE\tBORROWED\tRETURNED")
			for _, e := range entries {
				title := "(removed)"
				if e.Book != nil {
					title = truncate(e.Book.Title, 40)
				}
				returned := "-"
				if e.ReturnedAt != nil {
					returned = e.ReturnedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.BookID, title, e.BorrowedAt.Format(time.RFC3339), returned)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Records fetched per store round trip")
	return cmd
}

func borrowedCmd(c *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "borrowed <userId> <bookId>",
		Short: "Report whether a user currently holds a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Borrowed bool `json:"borrowed"`
			}
			path := fmt.Sprintf("/api/v1/users/%s/books/%s/borrowed", url.PathEscape(args[0]), url.PathEscape(args[1]))
			if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Borrowed)
			return nil
		},
	}
}

func ledgerCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Availability consistency operations (admin)",
	}

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check that availability flags match open loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report consistencyReport
			err := c.do(http.MethodGet, "/api/v1/ledger/consistency", nil, &report)
			if apiErr, ok := err.(*apiError); ok && apiErr.Status == http.StatusConflict {
				// 409 means drift was found.
				fmt.Fprintln(cmd.OutOrStdout(), "Consistency check FAILED")
				return apiErr
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
			fmt.Fprintf(cmd.OutOrStdout(), "Books: %d\nOpen loans: %d\n", report.TotalBooks, report.OpenLoans)
			return nil
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair availability flags from open loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report consistencyReport
			if err := c.do(http.MethodPost, "/api/v1/ledger/reconcile", nil, &report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Repaired: %d\n", report.Repaired)
			for _, d := range report.Discrepancies {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s recorded=%v derived=%v\n", d.BookID, d.RecordedAvailable, d.DerivedAvailable)
			}
			return nil
		},
	}

	cmd.AddCommand(consistency, reconcile)
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for seeding users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}

func printJSON(v any) {
	printJSONTo(os.Stdout, v)
}

func printJSONTo(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
