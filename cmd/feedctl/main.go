package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"socialvibe/internal/adapters/gateway"
	"socialvibe/internal/adapters/pushws"
	"socialvibe/internal/app"
	"socialvibe/internal/domain"
	"socialvibe/internal/infra/config"
	logpkg "socialvibe/internal/infra/log"
	"socialvibe/internal/infra/storage"
	"socialvibe/internal/usecase/render"
)

const FeedCtlVersion = "0.1.0"

const usage = `Feed control.

Состояние клиента хранится локально (STATE_BACKEND, STATE_PATH) и
переживает перезапуск вместе с cookie сессии.

Usage:
    feedctl login <user_name> [--password=<password>]
    feedctl signup <user_name> --role=<role> [--password=<password>]
    feedctl demo --role=<role>
    feedctl logout
    feedctl whoami
    feedctl feed [--pages=<pages>]
    feedctl following-feed
    feedctl profile
    feedctl celebrity <celebrity_id>
    feedctl search <user_name>
    feedctl follow <celebrity_id>
    feedctl unfollow <celebrity_id>
    feedctl post <content> [--image=<path>]
    feedctl delete <post_id>
    feedctl notifications [--dismiss=<author_id>]
    feedctl watch [--refresh=<refresh>]

Options:
    -h --help               Show this screen.
    --version               Show version.
    --password=<password>   Если не указан, запрашивается в терминале.
    --role=<role>           USER или CELEBRITY.
    --pages=<pages>         Сколько страниц ленты загрузить [default: 1].
    --image=<path>          Файл изображения к посту.
    --dismiss=<author_id>   Снять уведомления автора.
    --refresh=<refresh>     Как часто печатать уведомления [default: 2s].`

type env struct {
	client *app.Client
	gw     *gateway.Client
	state  domain.StateStorage
	log    zerolog.Logger
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], FeedCtlVersion)
	if err != nil {
		panic(err)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "feedctl:", err)
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, closeState, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.State.Backend,
		Path:        cfg.State.Path,
		RedisAddr:   cfg.State.RedisAddr,
		RedisPrefix: cfg.State.RedisPrefix,
	})
	if err != nil {
		return err
	}
	defer closeState()

	gw, err := gateway.New(cfg.Backend.URL, cfg.Backend.APIPrefix,
		gateway.WithTimeout(cfg.Backend.HTTPTimeout),
		gateway.WithLogger(logpkg.Component(logger, "gateway")))
	if err != nil {
		return err
	}
	var cookies []*http.Cookie
	if ok, err := state.Load(ctx, domain.NamespaceCookies, &cookies); err == nil && ok {
		gw.SetCookies(cookies)
	}

	e := &env{
		client: app.New(gw, state, cfg.FeedPageSize, logger),
		gw:     gw,
		state:  state,
		log:    logger,
	}

	if logout_, _ := opts.Bool("logout"); logout_ {
		// после выхода cookie не сохраняются, Clear уже стёр их
		return e.logout(ctx)
	}

	err = e.dispatch(ctx, opts, cfg)
	e.saveCookies()
	return err
}

func (e *env) dispatch(ctx context.Context, opts docopt.Opts, cfg config.AppConfig) error {
	if login_, _ := opts.Bool("login"); login_ {
		return e.login(ctx, opts)
	} else if signup_, _ := opts.Bool("signup"); signup_ {
		return e.signup(ctx, opts)
	} else if demo_, _ := opts.Bool("demo"); demo_ {
		return e.demo(ctx, opts)
	}

	if _, err := e.client.Start(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return errors.New("нет действующей сессии, выполните `feedctl login`")
		}
		return err
	}

	if whoami_, _ := opts.Bool("whoami"); whoami_ {
		fmt.Println(render.FormatSession(e.client.Session.GetUser()))
		return nil
	} else if feed_, _ := opts.Bool("feed"); feed_ {
		return e.feed(ctx, opts)
	} else if followingFeed_, _ := opts.Bool("following-feed"); followingFeed_ {
		posts, err := e.client.Feed.Followed(ctx)
		if err != nil {
			return err
		}
		fmt.Println(render.FormatPosts("Подписки", posts))
		return nil
	} else if profile_, _ := opts.Bool("profile"); profile_ {
		return e.profile(ctx)
	} else if celebrity_, _ := opts.Bool("celebrity"); celebrity_ {
		return e.celebrity(ctx, opts)
	} else if search_, _ := opts.Bool("search"); search_ {
		return e.search(ctx, opts)
	} else if follow_, _ := opts.Bool("follow"); follow_ {
		return e.follow(ctx, opts, true)
	} else if unfollow_, _ := opts.Bool("unfollow"); unfollow_ {
		return e.follow(ctx, opts, false)
	} else if post_, _ := opts.Bool("post"); post_ {
		return e.post(ctx, opts)
	} else if delete_, _ := opts.Bool("delete"); delete_ {
		postID, _ := opts.String("<post_id>")
		if err := e.client.DeletePost(ctx, postID); err != nil {
			return err
		}
		fmt.Println("Пост удалён")
		return nil
	} else if notifications_, _ := opts.Bool("notifications"); notifications_ {
		if authorID, err := opts.String("--dismiss"); err == nil && authorID != "" {
			e.client.Notifications.FilterPost(authorID)
		}
		fmt.Println(render.FormatNotifications(e.client.Notifications.GetPosts()))
		return nil
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		return e.watch(ctx, opts, cfg)
	}
	return nil
}

func (e *env) login(ctx context.Context, opts docopt.Opts) error {
	userName, _ := opts.String("<user_name>")
	password, err := passwordOf(opts)
	if err != nil {
		return err
	}
	e.restore(ctx)
	current, err := e.client.Login(ctx, userName, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return errors.New("неверное имя пользователя или пароль")
		}
		return err
	}
	fmt.Println(render.FormatSession(current))
	return nil
}

func (e *env) signup(ctx context.Context, opts docopt.Opts) error {
	userName, _ := opts.String("<user_name>")
	role, err := roleOf(opts)
	if err != nil {
		return err
	}
	password, err := passwordOf(opts)
	if err != nil {
		return err
	}
	e.restore(ctx)
	current, err := e.client.Signup(ctx, userName, password, role)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateAccount) {
			return fmt.Errorf("имя %q уже занято", userName)
		}
		return err
	}
	fmt.Println(render.FormatSession(current))
	return nil
}

func (e *env) demo(ctx context.Context, opts docopt.Opts) error {
	role, err := roleOf(opts)
	if err != nil {
		return err
	}
	e.restore(ctx)
	current, err := e.client.DemoLogin(ctx, role)
	if err != nil {
		return err
	}
	fmt.Println(render.FormatSession(current))
	return nil
}

// restore поднимает сохранённые хранилища перед входом; отсутствие сессии здесь не ошибка.
func (e *env) restore(ctx context.Context) {
	if _, err := e.client.Start(ctx); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
		e.log.Debug().Err(err).Msg("feedctl: verify before login failed")
	}
}

func (e *env) logout(ctx context.Context) error {
	if _, err := e.client.Start(ctx); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
		return err
	}
	if err := e.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Println(render.FormatSession(e.client.Session.GetUser()))
	return nil
}

func (e *env) feed(ctx context.Context, opts docopt.Opts) error {
	pages := 1
	if raw, err := opts.String("--pages"); err == nil && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fmt.Errorf("--pages: ожидается положительное число, получено %q", raw)
		}
		pages = n
	}
	for i := 0; i < pages && e.client.Feed.HasMore(); i++ {
		if _, err := e.client.Feed.NextPage(ctx); err != nil {
			return err
		}
	}
	fmt.Println(render.FormatPosts("Лента", e.client.Feed.Posts()))
	if !e.client.Feed.HasMore() {
		fmt.Println("(больше постов нет)")
	}
	return nil
}

func (e *env) profile(ctx context.Context) error {
	profile, err := e.client.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Println(render.FormatSession(profile.Session))
	switch profile.Session.Role {
	case domain.RoleUser:
		fmt.Println(render.FormatUsers("Подписки", profile.Following, nil))
	case domain.RoleCelebrity:
		fmt.Println(render.FormatUsers("Подписчики", profile.Followers, nil))
		fmt.Println(render.FormatPosts("Мои посты", profile.Posts))
	}
	return nil
}

func (e *env) celebrity(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<celebrity_id>")
	page, err := e.client.OpenCelebrity(ctx, id)
	if err != nil {
		return err
	}
	title := page.Celebrity.UserName
	if page.Following {
		title += " (вы подписаны)"
	}
	fmt.Println(render.FormatPosts(title, page.Posts))
	return nil
}

func (e *env) search(ctx context.Context, opts docopt.Opts) error {
	query, _ := opts.String("<user_name>")
	users, err := e.client.Search(ctx, query)
	if err != nil {
		return err
	}
	fmt.Println(render.FormatUsers("Найдено", users, e.client.Relationships.IsFollowing))
	return nil
}

func (e *env) follow(ctx context.Context, opts docopt.Opts, subscribe bool) error {
	id, _ := opts.String("<celebrity_id>")
	page, err := e.client.OpenCelebrity(ctx, id)
	if err != nil {
		return err
	}
	if subscribe {
		err = e.client.Follow(ctx, page.Celebrity)
	} else {
		err = e.client.Unfollow(ctx, page.Celebrity)
	}
	if err != nil {
		return err
	}
	fmt.Println(render.FormatUsers("Подписки", e.client.Relationships.GetFollowing(), nil))
	return nil
}

func (e *env) post(ctx context.Context, opts docopt.Opts) error {
	content, _ := opts.String("<content>")
	var image []byte
	if path, err := opts.String("--image"); err == nil && path != "" {
		image, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	}
	created, err := e.client.CreatePost(ctx, content, image)
	if err != nil {
		return err
	}
	fmt.Println(render.FormatPosts("Опубликовано", []domain.Post{created}))
	return nil
}

// watch держит push-канал открытым и печатает уведомления, когда их набор меняется.
func (e *env) watch(ctx context.Context, opts docopt.Opts, cfg config.AppConfig) error {
	refresh := 2 * time.Second
	if raw, err := opts.String("--refresh"); err == nil && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fmt.Errorf("--refresh: %q", raw)
		}
		refresh = d
	}

	push := pushws.New(e.gw.BaseURL(), pushws.Config{
		Reconnect:      cfg.Push.Reconnect,
		InitialBackoff: cfg.Push.InitialBackoff,
		MaxBackoff:     cfg.Push.MaxBackoff,
		MaxElapsed:     cfg.Push.MaxElapsed,
		Buffer:         cfg.Push.Buffer,
		Jar:            e.gw.Jar(),
	}, e.log)

	done := make(chan error, 1)
	go func() { done <- e.client.RunPush(ctx, push) }()

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	last := ""
	show := func() {
		out := render.FormatNotifications(e.client.Notifications.GetPosts())
		if out != last {
			fmt.Println(out)
			last = out
		}
	}
	show()
	for {
		select {
		case err := <-done:
			show()
			if err != nil && pushws.IsChannelFailure(err) {
				return fmt.Errorf("push-канал закрыт: %w", err)
			}
			return err
		case <-ticker.C:
			show()
		}
	}
}

func (e *env) saveCookies() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.state.Save(ctx, domain.NamespaceCookies, e.gw.Cookies()); err != nil {
		e.log.Warn().Err(err).Msg("feedctl: cookie сессии не сохранены")
	}
}

func roleOf(opts docopt.Opts) (domain.Role, error) {
	raw, _ := opts.String("--role")
	return domain.ParseRole(raw)
}

func passwordOf(opts docopt.Opts) (string, error) {
	if password, err := opts.String("--password"); err == nil && password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "Пароль: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", errors.New("пароль не может быть пустым")
	}
	return password, nil
}
