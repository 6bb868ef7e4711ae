package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/playback"
	"github.com/hazadus/go-tuner/internal/utils"
)

const shellHelp = `Команды:
  search <запрос>   поиск (s)
  up, down          выбор (k, j)
  open              открыть или воспроизвести выбранное (o)
  play <N>          открыть или воспроизвести элемент N (stream)
  back, forward     назад и вперед по истории (b, f)
  collapse          забыть кадры впереди (c)
  ls                показать текущий список
  pause             пауза
  now               что играет
  clear             очистить экран
  exit              выход (quit, q)`

// pauser ставит вывод на паузу
type pauser interface {
	TogglePause() bool
}

// createShellCommand создает команду shell с привязкой к экземпляру приложения
func (app *Application) createShellCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive line-based shell",
		Long:  `Read commands line by line: search, browse with up/down/open/back and play tracks by number.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.openSession()
			if err != nil {
				return err
			}
			sh := &shell{ctrl: s.ctrl, audio: s.output, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
			return sh.run(ctx)
		},
	}
}

// shell - построчный интерфейс к контроллеру. Команды выполняются синхронно.
type shell struct {
	ctrl  *playback.Controller
	audio pauser
	in    io.Reader
	out   io.Writer
}

func (sh *shell) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(sh.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(sh.out, "🎧 Введите 'help' для списка команд")
	for {
		fmt.Fprint(sh.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(sh.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(sh.out)
				return nil
			}
			if sh.exec(ctx, line) {
				return nil
			}
		}
	}
}

// exec выполняет одну строку и сообщает, пора ли выходить
func (sh *shell) exec(ctx context.Context, line string) bool {
	defer sh.ctrl.Reclaim()

	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "":
		return false
	case "search", "s":
		if arg == "" {
			fmt.Fprintln(sh.out, "❓ Укажите запрос: search <запрос>")
			return false
		}
		err = sh.navigate(ctx, playback.Search{Query: arg})
	case "up", "k":
		err = sh.navigate(ctx, playback.Select{Dir: catalog.Up})
	case "down", "j":
		err = sh.navigate(ctx, playback.Select{Dir: catalog.Down})
	case "open", "o":
		err = sh.activate(ctx)
	case "play", "stream":
		err = sh.playAt(ctx, arg)
	case "back", "b":
		err = sh.navigate(ctx, playback.Back{})
	case "forward", "f":
		err = sh.navigate(ctx, playback.Forward{})
	case "collapse", "c":
		err = sh.navigate(ctx, playback.Collapse{})
	case "ls":
		sh.printFrame()
	case "pause", "p":
		sh.togglePause()
	case "now":
		fmt.Fprintln(sh.out, sh.ctrl.Status())
	case "clear":
		fmt.Fprint(sh.out, "\033[H\033[2J")
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
	case "exit", "quit", "q":
		err = sh.ctrl.Dispatch(ctx, playback.Quit{})
	default:
		fmt.Fprintf(sh.out, "❓ Неизвестная команда: %s\n", name)
		return false
	}

	if errors.Is(err, playback.ErrQuit) {
		fmt.Fprintln(sh.out, "👋 До свидания!")
		return true
	}
	if err != nil {
		fmt.Fprintf(sh.out, "❌ Ошибка: %v\n", err)
	}
	return false
}

// navigate выполняет команду и показывает получившийся список
func (sh *shell) navigate(ctx context.Context, cmd playback.Command) error {
	if err := sh.ctrl.Dispatch(ctx, cmd); err != nil {
		return err
	}
	sh.printFrame()
	return nil
}

func (sh *shell) activate(ctx context.Context) error {
	before := sh.ctrl.Depth()
	if err := sh.ctrl.Dispatch(ctx, playback.Activate{}); err != nil {
		return err
	}
	if sh.ctrl.Depth() != before {
		sh.printFrame()
		return nil
	}
	fmt.Fprintf(sh.out, "🎵 %s\n", sh.ctrl.Status())
	return nil
}

func (sh *shell) playAt(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("неверный номер '%s'", arg)
	}
	if n < 0 || n >= sh.ctrl.Current().Len() {
		return fmt.Errorf("нет элемента с номером %d", n)
	}
	sh.ctrl.SelectAt(n)
	return sh.activate(ctx)
}

func (sh *shell) togglePause() {
	if sh.audio == nil {
		return
	}
	if sh.audio.TogglePause() {
		fmt.Fprintln(sh.out, "⏸ Пауза")
	} else {
		fmt.Fprintln(sh.out, "▶ Продолжаем")
	}
}

func (sh *shell) printFrame() {
	frame := sh.ctrl.Current()
	sel, ok := sh.ctrl.Selection()

	if frame.Title != "" {
		fmt.Fprintf(sh.out, "📂 %s\n", frame.Title)
	}
	if frame.Len() == 0 {
		fmt.Fprintln(sh.out, "   (пусто)")
		return
	}
	for i, e := range frame.Entries {
		marker := " "
		if ok && i == sel {
			marker = ">"
		}
		fmt.Fprintf(sh.out, "%s%3d: %s\n", marker, i, shellLabel(e))
	}
}

// shellLabel - строка элемента в списке: название и исполнитель
func shellLabel(e catalog.Entry) string {
	switch v := e.(type) {
	case catalog.Track:
		return fmt.Sprintf("%s | %s  %s",
			utils.PadRight(utils.TruncateString(v.Title, 46), 48),
			catalog.PrimaryArtist(v),
			utils.FormatTrackTime(v.Duration))
	case catalog.Album:
		title := v.Title
		if v.Year > 0 {
			title = fmt.Sprintf("%s (%d)", v.Title, v.Year)
		}
		return fmt.Sprintf("[альбом] %s | %s",
			utils.PadRight(utils.TruncateString(title, 46), 48),
			catalog.PrimaryArtist(v))
	case catalog.Artist:
		return "[исполнитель] " + v.Name
	default:
		panic(fmt.Sprintf("неизвестный элемент каталога %T", e))
	}
}
