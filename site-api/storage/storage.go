package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

const (
	usersPartition    = "users"
	settingsPartition = "site"
	settingsRowKey    = "settings"
)

// RawRecord is a stored entity payload keyed by its identifier. ETag is the
// table's version of the row; a non-empty ETag makes PutRaw conditional.
type RawRecord struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
	ETag string          `json:"etag,omitempty"`
}

// Storage provides access to the content, users and settings tables and the
// content events queue.
type Storage struct {
	contentTable  *aztables.Client
	usersTable    *aztables.Client
	settingsTable *aztables.Client
	eventsQueue   *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, contentTable, usersTable, settingsTable, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		contentTable:  svc.NewClient(contentTable),
		usersTable:    svc.NewClient(usersTable),
		settingsTable: svc.NewClient(settingsTable),
		eventsQueue:   q,
	}, nil
}

// entityKeys carries the table keys without the service-managed Timestamp.
type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type contentEntity struct {
	entityKeys
	ETag string `json:"odata.etag"`
	Data string `json:"Data"`
}

type userEntity struct {
	entityKeys
	Email     string `json:"Email"`
	Name      string `json:"Name"`
	Role      string `json:"Role"`
	CreatedAt string `json:"CreatedAt"`
}

func isNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// ListRaw returns every stored payload of the given kind.
func (s *Storage) ListRaw(ctx context.Context, kind domain.Kind) ([]RawRecord, error) {
	filter := "PartitionKey eq " + quote(string(kind))
	pager := s.contentTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	records := []RawRecord{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent contentEntity
			if err := sonic.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			records = append(records, RawRecord{ID: ent.RowKey, Data: json.RawMessage(ent.Data), ETag: ent.ETag})
		}
	}
	return records, nil
}

// GetRaw returns one stored payload or domain.ErrNotFound.
func (s *Storage) GetRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error) {
	resp, err := s.contentTable.GetEntity(ctx, string(kind), id, nil)
	if err != nil {
		if isNotFound(err) {
			return RawRecord{}, domain.ErrNotFound
		}
		return RawRecord{}, err
	}
	var ent contentEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return RawRecord{}, err
	}
	return RawRecord{ID: ent.RowKey, Data: json.RawMessage(ent.Data), ETag: ent.ETag}, nil
}

// LatestRaw reads the row from the table.
func (s *Storage) LatestRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error) {
	return s.GetRaw(ctx, kind, id)
}

// PutRaw creates or replaces a payload together with its indexed columns.
// With rec.ETag set the row is only replaced if it still has that version;
// otherwise domain.ErrConflict is returned.
func (s *Storage) PutRaw(ctx context.Context, kind domain.Kind, rec RawRecord, columns map[string]any) error {
	ent := make(map[string]any, len(columns)+3)
	for k, v := range columns {
		ent[k] = v
	}
	ent["PartitionKey"] = string(kind)
	ent["RowKey"] = rec.ID
	ent["Data"] = string(rec.Data)
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return err
	}
	if rec.ETag == "" {
		_, err = s.contentTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
		return err
	}
	et := azcore.ETag(rec.ETag)
	_, err = s.contentTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace})
	switch {
	case hasStatus(err, http.StatusPreconditionFailed):
		return domain.ErrConflict
	case isNotFound(err):
		return domain.ErrNotFound
	}
	return err
}

// DeleteRaw removes a payload or returns domain.ErrNotFound.
func (s *Storage) DeleteRaw(ctx context.Context, kind domain.Kind, id string) error {
	_, err := s.contentTable.DeleteEntity(ctx, string(kind), id, nil)
	if err != nil && isNotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

// GetUser returns the user with the given subject or domain.ErrNotFound.
func (s *Storage) GetUser(ctx context.Context, id string) (domain.User, error) {
	resp, err := s.usersTable.GetEntity(ctx, usersPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return decodeUserEntity(resp.Value)
}

// PutUser creates or replaces a user.
func (s *Storage) PutUser(ctx context.Context, u domain.User) error {
	ent := userEntity{
		entityKeys: entityKeys{PartitionKey: usersPartition, RowKey: u.ID},
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.usersTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// ListUsers returns every registered user.
func (s *Storage) ListUsers(ctx context.Context) ([]domain.User, error) {
	filter := "PartitionKey eq " + quote(usersPartition)
	pager := s.usersTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	users := []domain.User{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			u, err := decodeUserEntity(e)
			if err != nil {
				return nil, err
			}
			users = append(users, u)
		}
	}
	return users, nil
}

func decodeUserEntity(data []byte) (domain.User, error) {
	var ent userEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.User{}, err
	}
	u := domain.User{ID: ent.RowKey, Email: ent.Email, Name: ent.Name, Role: domain.Role(ent.Role)}
	if ent.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, ent.CreatedAt); err == nil {
			u.CreatedAt = t
		}
	}
	return u, nil
}

func decodeSettingsEntity(data []byte) (domain.Settings, error) {
	var ent contentEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Settings{}, err
	}
	settings := domain.DefaultSettings()
	if ent.Data == "" {
		return settings, nil
	}
	if err := sonic.UnmarshalString(ent.Data, &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// FetchSettings returns the saved site settings, or defaults when none were saved.
func (s *Storage) FetchSettings(ctx context.Context) (domain.Settings, error) {
	resp, err := s.settingsTable.GetEntity(ctx, settingsPartition, settingsRowKey, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}
	return decodeSettingsEntity(resp.Value)
}

// SaveSettings replaces the site settings.
func (s *Storage) SaveSettings(ctx context.Context, settings domain.Settings) error {
	data, err := sonic.MarshalString(settings)
	if err != nil {
		return err
	}
	ent := contentEntity{
		entityKeys: entityKeys{PartitionKey: settingsPartition, RowKey: settingsRowKey},
		Data:       data,
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.settingsTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// PublishEvent sends a content event to the events queue.
func (s *Storage) PublishEvent(ctx context.Context, ev domain.ContentEvent) error {
	data, err := sonic.MarshalString(ev)
	if err != nil {
		return err
	}
	_, err = s.eventsQueue.EnqueueMessage(ctx, data, nil)
	return err
}
