package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/todokeeper/internal/client/models"
)

// currentUser resolves the authenticated user or tells the user to log in.
func (a *App) currentUser() *models.User {
	u := a.session.Current()
	if u == nil {
		printlnFn("Please log in first (type 'login' or 'signup').")
	}
	return u
}

// Add creates a todo from the command arguments, or prompts for the text
// when none were given. Empty text is rejected.
func (a *App) Add(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return nil
	}

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		entered, err := getSimpleText(a.reader, "Enter todo text", os.Stdout)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(entered)
	}
	if text == "" {
		printlnFn("Please enter a todo text.")
		return nil
	}

	todo := a.storage.AddTodo(ctx, user.ID, text)
	printlnFn("Added " + todo.ID + ": " + todo.Text)
	return nil
}

// List prints the user's todos in insertion order with a stats footer.
func (a *App) List(ctx context.Context) error {
	user := a.currentUser()
	if user == nil {
		return nil
	}

	todos := a.storage.ListTodos(ctx, user.ID)
	if len(todos) == 0 {
		printlnFn("No todos yet. Add your first todo with 'add'!")
		return nil
	}

	for _, todo := range todos {
		mark := " "
		if todo.Completed {
			mark = "x"
		}
		printlnFn(fmt.Sprintf("[%s] %s  %s", mark, todo.ID, todo.Text))
	}

	pending, completed := countTodos(todos)
	printlnFn(fmt.Sprintf("Pending: %d  Completed: %d  Total: %d", pending, completed, len(todos)))
	return nil
}

// Stats prints the pending/completed/total counters.
func (a *App) Stats(ctx context.Context) error {
	user := a.currentUser()
	if user == nil {
		return nil
	}

	todos := a.storage.ListTodos(ctx, user.ID)
	pending, completed := countTodos(todos)
	printlnFn(fmt.Sprintf("Pending: %d  Completed: %d  Total: %d", pending, completed, len(todos)))
	return nil
}

// Toggle flips the completed state of the todo with the given id.
func (a *App) Toggle(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return nil
	}
	if len(args) == 0 {
		printlnFn("Usage: toggle <id>")
		return nil
	}

	id := args[0]
	todo := findTodo(a.storage.ListTodos(ctx, user.ID), id)
	if todo == nil {
		printlnFn("No todo with id " + id)
		return nil
	}

	completed := !todo.Completed
	a.storage.UpdateTodo(ctx, user.ID, id, models.TodoPatch{Completed: &completed})

	state := "pending"
	if completed {
		state = "completed"
	}
	printlnFn("Todo " + id + " is now " + state)
	return nil
}

// Edit replaces the text of the todo with the given id, prompting for the
// new text. Empty text is rejected.
func (a *App) Edit(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return nil
	}
	if len(args) == 0 {
		printlnFn("Usage: edit <id>")
		return nil
	}

	id := args[0]
	if findTodo(a.storage.ListTodos(ctx, user.ID), id) == nil {
		printlnFn("No todo with id " + id)
		return nil
	}

	entered, err := getSimpleText(a.reader, "Enter new text", os.Stdout)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(entered)
	if text == "" {
		printlnFn("Please enter a todo text.")
		return nil
	}

	a.storage.UpdateTodo(ctx, user.ID, id, models.TodoPatch{Text: &text})
	printlnFn("Updated " + id)
	return nil
}

// Delete removes the todo with the given id.
func (a *App) Delete(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return nil
	}
	if len(args) == 0 {
		printlnFn("Usage: delete <id>")
		return nil
	}

	id := args[0]
	a.storage.DeleteTodo(ctx, user.ID, id)
	printlnFn("Deleted " + id)
	return nil
}

func countTodos(todos []models.Todo) (pending, completed int) {
	for _, todo := range todos {
		if todo.Completed {
			completed++
		} else {
			pending++
		}
	}
	return pending, completed
}

func findTodo(todos []models.Todo, id string) *models.Todo {
	for i := range todos {
		if todos[i].ID == id {
			return &todos[i]
		}
	}
	return nil
}
