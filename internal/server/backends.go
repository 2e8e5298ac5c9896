package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cookbook/internal/cache"
	"cookbook/internal/cloud"
	"cookbook/internal/config"
	"cookbook/internal/database"
	"cookbook/internal/identity"
	"cookbook/internal/media"
	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/store"
	"cookbook/internal/store/dynamo"
	"cookbook/internal/store/mongostore"
	"cookbook/internal/store/sqlstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
)

// Backends are the collaborators the HTTP layer is built on.
type Backends struct {
	Users      store.Table[models.User]
	Posts      store.Table[models.Post]
	Categories store.Table[models.Category]
	Comments   store.Table[models.Comment]
	Identity   identity.Provider
	Verifier   identity.Verifier
	Media      media.Uploader
	Redis      *redis.Client

	// Close releases backend connections. May be nil.
	Close func(context.Context) error
}

// Tables are the store tables of the configured backend.
type Tables struct {
	Users       store.Table[models.User]
	Posts       store.Table[models.Post]
	Categories  store.Table[models.Category]
	Comments    store.Table[models.Comment]
	Credentials store.Table[models.Credential]

	// Close releases the store connection. May be nil.
	Close func(context.Context) error
}

// awsLoader resolves the AWS configuration once and shares it between clients.
type awsLoader struct {
	ctx    context.Context
	cfg    *config.Config
	loaded *aws.Config
}

func (l *awsLoader) load() (aws.Config, error) {
	if l.loaded != nil {
		return *l.loaded, nil
	}
	a, err := cloud.LoadAWSConfig(l.ctx, l.cfg)
	if err != nil {
		return aws.Config{}, err
	}
	l.loaded = &a
	return a, nil
}

// OpenTables connects only the store selected by cfg, creating tables and indexes when
// cfg.StoreAutoCreate is set. Identity, media and Redis are left untouched.
func OpenTables(ctx context.Context, cfg *config.Config) (*Tables, error) {
	return openTables(ctx, cfg, &awsLoader{ctx: ctx, cfg: cfg})
}

// OpenBackends connects the store, identity provider, media service and Redis selected by cfg.
// ctx bounds startup only; background work such as JWKS refresh runs until Close.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	loader := &awsLoader{ctx: ctx, cfg: cfg}

	t, err := openTables(ctx, cfg, loader)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	b := &Backends{
		Users:      t.Users,
		Posts:      t.Posts,
		Categories: t.Categories,
		Comments:   t.Comments,
		Close:      t.Close,
	}

	switch cfg.IdentityProvider {
	case config.IdentityCognito:
		a, err := loader.load()
		if err != nil {
			return nil, closeOnError(ctx, b, fmt.Errorf("identity: %w", err))
		}
		b.Identity = identity.NewCognito(cloud.Cognito(a, cfg), cfg.UserPoolID, cfg.ClientID)
		issuer := identity.CognitoIssuer(cfg.AWSRegion, cfg.UserPoolID)
		verifier, err := identity.NewCognitoVerifier(ctx, identity.CognitoJWKSURL(issuer), issuer, cfg.ClientID)
		if err != nil {
			return nil, closeOnError(ctx, b, fmt.Errorf("identity: %w", err))
		}
		b.Verifier = verifier
		b.Close = stopThen(verifier.Close, t.Close)
	case config.IdentityLocal:
		local := identity.NewLocal(t.Credentials, cfg.JWTSecret)
		b.Identity = local
		b.Verifier = local.Verifier()
	default:
		return nil, closeOnError(ctx, b, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider))
	}

	switch cfg.MediaBackend {
	case config.MediaCloudinary:
		uploader, err := media.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			return nil, closeOnError(ctx, b, fmt.Errorf("media: %w", err))
		}
		b.Media = uploader
	case config.MediaS3:
		a, err := loader.load()
		if err != nil {
			return nil, closeOnError(ctx, b, fmt.Errorf("media: %w", err))
		}
		b.Media = media.NewS3(cloud.S3(a, cfg), cfg.S3Bucket, cfg.AWSRegion, cfg.MediaPublicBaseURL)
	default:
		return nil, closeOnError(ctx, b, fmt.Errorf("unknown media backend %q", cfg.MediaBackend))
	}

	cache.InitRedis(cfg.RedisURL)
	b.Redis = cache.GetClient()

	return b, nil
}

// stopThen runs stop before closing the store.
func stopThen(stop func(), closeStore func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		stop()
		if closeStore == nil {
			return nil
		}
		return closeStore(ctx)
	}
}

func closeOnError(ctx context.Context, b *Backends, err error) error {
	if b.Close != nil {
		if closeErr := b.Close(ctx); closeErr != nil {
			return errors.Join(err, closeErr)
		}
	}
	return err
}

func openTables(ctx context.Context, cfg *config.Config, loader *awsLoader) (*Tables, error) {
	switch cfg.StoreBackend {
	case config.StoreDynamoDB:
		a, err := loader.load()
		if err != nil {
			return nil, err
		}
		return openDynamo(ctx, cfg, cloud.DynamoDB(a, cfg))
	case config.StorePostgres:
		return openPostgres(ctx, cfg)
	case config.StoreMongoDB:
		return openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openDynamo(ctx context.Context, cfg *config.Config, client dynamo.API) (*Tables, error) {
	users := dynamo.NewTable[models.User](client, cfg.UserTable, models.UserKey)
	posts := dynamo.NewTable[models.Post](client, cfg.PostTable, models.PostKey)
	categories := dynamo.NewTable[models.Category](client, cfg.CategoryTable, models.CategoryKey)
	comments := dynamo.NewTable[models.Comment](client, cfg.CommentTable, models.CommentKey)
	credentials := dynamo.NewTable[models.Credential](client, cfg.CredentialTable, models.CredentialKey)

	if cfg.StoreAutoCreate {
		prepare := []func(context.Context) error{
			users.EnsureTable, posts.EnsureTable, categories.EnsureTable, comments.EnsureTable,
		}
		if cfg.IdentityProvider == config.IdentityLocal {
			prepare = append(prepare, credentials.EnsureTable)
		}
		if err := runAll(ctx, prepare); err != nil {
			return nil, err
		}
	}

	const system = "dynamodb"
	return &Tables{
		Users:       store.Instrument[models.User](users, system, cfg.UserTable),
		Posts:       store.Instrument[models.Post](posts, system, cfg.PostTable),
		Categories:  store.Instrument[models.Category](categories, system, cfg.CategoryTable),
		Comments:    store.Instrument[models.Comment](comments, system, cfg.CommentTable),
		Credentials: store.Instrument[models.Credential](credentials, system, cfg.CredentialTable),
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Tables, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	closeDB := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	users := sqlstore.NewTable[models.User](db, cfg.UserTable, models.UserKey)
	posts := sqlstore.NewTable[models.Post](db, cfg.PostTable, models.PostKey)
	categories := sqlstore.NewTable[models.Category](db, cfg.CategoryTable, models.CategoryKey)
	comments := sqlstore.NewTable[models.Comment](db, cfg.CommentTable, models.CommentKey)
	credentials := sqlstore.NewTable[models.Credential](db, cfg.CredentialTable, models.CredentialKey)

	// AutoMigrate stays on outside production for developer ergonomics.
	if cfg.StoreAutoCreate || !cfg.IsProduction() {
		prepare := []func(context.Context) error{
			users.Migrate, posts.Migrate, categories.Migrate, comments.Migrate, credentials.Migrate,
		}
		if err := runAll(ctx, prepare); err != nil {
			_ = closeDB(ctx)
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		middleware.Logger.Info("Database migration completed")
	}

	const system = "postgresql"
	return &Tables{
		Users:       store.Instrument[models.User](users, system, cfg.UserTable),
		Posts:       store.Instrument[models.Post](posts, system, cfg.PostTable),
		Categories:  store.Instrument[models.Category](categories, system, cfg.CategoryTable),
		Comments:    store.Instrument[models.Comment](comments, system, cfg.CommentTable),
		Credentials: store.Instrument[models.Credential](credentials, system, cfg.CredentialTable),
		Close:       closeDB,
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*Tables, error) {
	client, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)

	users := mongostore.NewTable[models.User](db, cfg.UserTable, models.UserKey)
	posts := mongostore.NewTable[models.Post](db, cfg.PostTable, models.PostKey)
	categories := mongostore.NewTable[models.Category](db, cfg.CategoryTable, models.CategoryKey)
	comments := mongostore.NewTable[models.Comment](db, cfg.CommentTable, models.CommentKey)
	credentials := mongostore.NewTable[models.Credential](db, cfg.CredentialTable, models.CredentialKey)

	if cfg.StoreAutoCreate {
		prepare := []func(context.Context) error{
			users.EnsureIndex, posts.EnsureIndex, categories.EnsureIndex, comments.EnsureIndex, credentials.EnsureIndex,
		}
		if err := runAll(ctx, prepare); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
	}

	const system = "mongodb"
	return &Tables{
		Users:       store.Instrument[models.User](users, system, cfg.UserTable),
		Posts:       store.Instrument[models.Post](posts, system, cfg.PostTable),
		Categories:  store.Instrument[models.Category](categories, system, cfg.CategoryTable),
		Comments:    store.Instrument[models.Comment](comments, system, cfg.CommentTable),
		Credentials: store.Instrument[models.Credential](credentials, system, cfg.CredentialTable),
		Close:       client.Disconnect,
	}, nil
}

func runAll(ctx context.Context, steps []func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// logBackends reports which collaborators the server runs on.
func logBackends(cfg *config.Config) {
	middleware.Logger.Info("Backends selected",
		slog.String("store", cfg.StoreBackend),
		slog.String("identity", cfg.IdentityProvider),
		slog.String("media", cfg.MediaBackend),
	)
}
