package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// TeacherRepository handles teacher database operations
type TeacherRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewTeacherRepository creates a new TeacherRepository
func NewTeacherRepository(db *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{db: db, sb: newStatementBuilder()}
}

func toTeacher(p personRow) *models.Teacher {
	return &models.Teacher{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
}

func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) (int64, error) {
	id, err := insertPerson(ctx, r.db, r.sb, "teachers", teacher.FirstName, teacher.LastName)
	if err != nil {
		return 0, err
	}
	teacher.ID = id
	return id, nil
}

func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*models.Teacher, error) {
	people, err := selectPeople(ctx, r.db, r.sb, "teachers", squirrel.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, apperrors.NewResourceNotFoundError("teacher not found")
	}
	return toTeacher(people[0]), nil
}

func (r *TeacherRepository) List(ctx context.Context) ([]*models.Teacher, error) {
	people, err := selectPeople(ctx, r.db, r.sb, "teachers", nil)
	if err != nil {
		return nil, err
	}
	teachers := make([]*models.Teacher, 0, len(people))
	for _, p := range people {
		teachers = append(teachers, toTeacher(p))
	}
	return teachers, nil
}

func (r *TeacherRepository) Update(ctx context.Context, id int64, update models.PersonUpdate) error {
	if update.Empty() {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return updatePerson(ctx, r.db, r.sb, "teachers", id, update, "teacher not found")
}

// Delete removes a teacher. Their courses stay but lose the teacher, linked
// accounts are unlinked and QR tokens they issued are dropped.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	return db.InTx(ctx, r.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := execStatement(ctx, tx, r.sb.Update("courses").Set("teacher_id", nil).Where(squirrel.Eq{"teacher_id": id}), "unassign teacher courses"); err != nil {
			return err
		}
		if _, err := execStatement(ctx, tx, r.sb.Update("accounts").Set("teacher_id", nil).Where(squirrel.Eq{"teacher_id": id}), "unlink teacher accounts"); err != nil {
			return err
		}
		if _, err := execStatement(ctx, tx, r.sb.Delete("qr_tokens").Where(squirrel.Eq{"teacher_id": id}), "delete teacher qr tokens"); err != nil {
			return err
		}
		n, err := execStatement(ctx, tx, r.sb.Delete("teachers").Where(squirrel.Eq{"id": id}), "delete teacher")
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.NewResourceNotFoundError("teacher not found")
		}
		return nil
	})
}
