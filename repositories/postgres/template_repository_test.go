package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTemplateRepositoryInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db, zap.NewNop())

	tpl := models.NewPromptTemplate("Ofício padrão", "Redija um ofício sobre {assunto}", "maria", true)

	mock.ExpectExec(`INSERT INTO prompt_templates`).
		WithArgs(tpl.ID, "Ofício padrão", "Redija um ofício sobre {assunto}", "maria", true, tpl.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), tpl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db, zap.NewNop())

	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "title", "content", "created_by", "is_public", "created_at",
	}).AddRow(id, "título", "conteúdo", "maria", false, now)

	mock.ExpectQuery(`SELECT .+ FROM prompt_templates WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	tpl, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, tpl.ID)
	assert.Equal(t, "maria", tpl.CreatedBy)
	assert.False(t, tpl.IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db, zap.NewNop())

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM prompt_templates WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "content", "created_by", "is_public", "created_at",
		}))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorContains(t, err, "template not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryListVisible(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db, zap.NewNop())

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "title", "content", "created_by", "is_public", "created_at",
	}).
		AddRow(uuid.New(), "meu rascunho", "texto", "maria", false, now).
		AddRow(uuid.New(), "modelo público", "texto", "joao", true, now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT .+ FROM prompt_templates\s+WHERE created_by = \$1 OR is_public = TRUE`).
		WithArgs("maria").
		WillReturnRows(rows)

	listed, err := repo.ListVisible(context.Background(), "maria")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "maria", listed[0].CreatedBy)
	assert.True(t, listed[1].IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db, zap.NewNop())

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM prompt_templates WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTemplateRepository(db, zap.NewNop())

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM prompt_templates WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)
	assert.ErrorContains(t, err, "template not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
