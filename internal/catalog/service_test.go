package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/garage/internal/catalog"
)

func TestService_Classification(t *testing.T) {
	site := uuid.New()

	type testCase struct {
		name      string
		code      string
		setupMock func(m *catalog.MockRepository)
		want      *catalog.Classification
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "NormalisesCode",
			code: " warranty ",
			setupMock: func(m *catalog.MockRepository) {
				m.EXPECT().
					FindClassification(gomock.Any(), site, "WARRANTY").
					Return(&catalog.Classification{Code: "WARRANTY", Active: true}, nil)
			},
			want: &catalog.Classification{Code: "WARRANTY", Active: true},
		},
		{
			name: "EmptyCodeSkipsLookup",
			code: "  ",
			want: nil,
		},
		{
			name: "RepoError",
			code: "BODY",
			setupMock: func(m *catalog.MockRepository) {
				m.EXPECT().
					FindClassification(gomock.Any(), site, "BODY").
					Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := catalog.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := catalog.NewService(repo).Classification(context.Background(), site, tt.code)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ResolveUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	site := uuid.New()
	alice, bob, ghost := uuid.New(), uuid.New(), uuid.New()

	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().
		ActiveUsers(gomock.Any(), site, []uuid.UUID{alice, ghost, alice, bob}).
		Return([]uuid.UUID{bob, alice}, nil)

	active, unknown, err := catalog.NewService(repo).ResolveUsers(context.Background(), site, []uuid.UUID{alice, ghost, alice, bob})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{alice, bob}, active)
	assert.Equal(t, []uuid.UUID{ghost}, unknown)
}

func TestService_ResolveUsersEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	active, unknown, err := catalog.NewService(catalog.NewMockRepository(ctrl)).ResolveUsers(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, unknown)
}

func TestService_MatchPart(t *testing.T) {
	site := uuid.New()
	pads := &catalog.Part{ID: uuid.New(), SKU: "BP-220", Name: "Brake pads"}

	type testCase struct {
		name        string
		sku         string
		description string
		setupMock   func(m *catalog.MockRepository)
		want        *catalog.Part
	}

	tests := []testCase{
		{
			name: "BySKU",
			sku:  "BP-220",
			setupMock: func(m *catalog.MockRepository) {
				m.EXPECT().FindPartBySKU(gomock.Any(), site, "BP-220").Return(pads, nil)
			},
			want: pads,
		},
		{
			name:        "FallsBackToDescription",
			sku:         "UNKNOWN",
			description: "Front brake pads set",
			setupMock: func(m *catalog.MockRepository) {
				m.EXPECT().FindPartBySKU(gomock.Any(), site, "UNKNOWN").Return(nil, nil)
				m.EXPECT().SuggestPart(gomock.Any(), site, "Front brake pads set").Return(pads, nil)
			},
			want: pads,
		},
		{
			name: "NothingToMatch",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := catalog.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := catalog.NewService(repo).MatchPart(context.Background(), site, tt.sku, tt.description)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
