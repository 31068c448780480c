package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"character-quiz/internal/domain"
	"character-quiz/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// runPlay juega una sesion completa sobre in/out. El countdown vence como
// deadline del contexto y se traduce en Expire, no en cortar la lectura.
func runPlay(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	engine *service.SessionEngine,
	classifier *service.ProfileClassifier,
	timeLimit time.Duration,
) (domain.SessionState, domain.Analysis) {
	var cancel context.CancelFunc
	if timeLimit > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Si vence el countdown el lector queda bloqueado en Scan hasta el proximo
	// Enter o EOF; no hay forma de cortar un read de stdin y el proceso termina igual.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	state := engine.Start()
	for !state.IsComplete {
		printScenario(out, state, engine.SessionLength())
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nTime is up.")
			state = engine.Expire(state)
		case line, ok := <-lines:
			if !ok {
				state = engine.Expire(state)
				continue
			}
			choice, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintln(out, "Enter the number of your choice.")
				continue
			}
			next, err := engine.ApplyChoice(state, choice-1)
			if err != nil {
				fmt.Fprintf(out, "Choice %d is not available.\n", choice)
				continue
			}
			state = next
		}
	}

	scores := engine.GetScores(state)
	analysis := classifier.Analyze(scores.Adjusted)

	fmt.Fprintf(out, "\n%s===== Results (%d answered) =====%s\n", colorGreen, state.QuestionsAnswered, colorReset)
	for _, trait := range engine.Registry().Traits(scores.Adjusted) {
		fmt.Fprintf(out, "%-16s raw %4d  avg %6.2f  adjusted %4d\n",
			trait.Name, scores.Raw[trait.Key], scores.Normalized[trait.Key], trait.Score)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, analysis.Describe())
	return state, analysis
}

func printScenario(out io.Writer, state domain.SessionState, length int) {
	sc := state.CurrentScenario
	if sc == nil {
		return
	}
	fmt.Fprintf(out, "\n%s[%d/%d] %s%s\n", colorCyan, state.QuestionsAnswered+1, length, sc.Subject, colorReset)
	if sc.Role != "" {
		fmt.Fprintln(out, sc.Role)
	}
	if sc.Narrative != "" {
		fmt.Fprintln(out, sc.Narrative)
	}
	if sc.Question != "" {
		fmt.Fprintln(out, sc.Question)
	}
	for i, choice := range sc.Choices {
		fmt.Fprintf(out, "  %d) %s\n", i+1, choice)
	}
	fmt.Fprint(out, "> ")
}
