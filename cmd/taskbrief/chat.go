package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"taskbrief/internal/analyze"
	"taskbrief/internal/task"
)

const chatSystemTemplate = `You are a helpful assistant with access to the user's task list.
You can help them find tasks, summarize their workload, identify patterns, and answer questions about their tasks.

Here is the user's complete task list (%d tasks):

%s

When answering:
- Be concise and helpful
- Reference specific task numbers when relevant
- If asked about topics, search through task titles, URLs, and notes
- You can suggest tasks to prioritize, delete, or group together
- If a task has a URL, mention it might have more context there`

// chatContext 把任务列表压成给模型的上下文
// chatContext renders the task list into the system prompt context.
func chatContext(tasks []task.Task) string {
	var b strings.Builder
	for i, t := range tasks {
		listName := t.ListName
		if listName == "" {
			listName = "Unknown List"
		}
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, listName, t.Title)
		if t.DueDate != "" {
			fmt.Fprintf(&b, " (Due: %s)", t.DueDate)
		}
		if t.Importance == task.ImportanceHigh {
			b.WriteString(" [HIGH PRIORITY]")
		}
		if len(t.URLs) > 0 {
			urls := t.URLs
			if len(urls) > 2 {
				urls = urls[:2]
			}
			fmt.Fprintf(&b, " | URLs: %s", strings.Join(urls, ", "))
		}
		if body := strings.TrimSpace(t.Body); body != "" {
			if len(body) > 100 {
				body = body[:100] + "..."
			}
			fmt.Fprintf(&b, " | Notes: %s", body)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cmdChat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	client := newGraphClient(cfg)
	fmt.Println("Loading tasks...")
	tasks, err := client.AllTasks(ctx, false)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d tasks.\n\n", len(tasks))

	system := fmt.Sprintf(chatSystemTemplate, len(tasks), chatContext(tasks))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "You: ",
		HistoryFile:       "",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Println(headerStyle.Render("TASK CHAT - Ask questions about your task list"))
	fmt.Println(mutedStyle.Render("Examples: 'What are my oldest tasks?', 'What should I focus on today?'"))
	fmt.Println(mutedStyle.Render("Type 'quit' or 'exit' to end the session."))
	fmt.Println()

	var history []analyze.ChatMessage
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("Goodbye!")
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil
		}

		reply, err := analyzer.Chat(ctx, system, history, line)
		if err != nil {
			fmt.Printf("\nError: %v\n\n", err)
			continue
		}
		history = append(history,
			analyze.ChatMessage{Role: "user", Content: line},
			analyze.ChatMessage{Role: "assistant", Content: reply},
		)
		fmt.Printf("\n%s\n\n", renderMarkdown(reply, 100))
	}
}
