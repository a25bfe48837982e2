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

// StudentRepository handles student database operations
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{db: db, sb: newStatementBuilder()}
}

func toStudent(p personRow) *models.Student {
	return &models.Student{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	id, err := insertPerson(ctx, r.db, r.sb, "students", student.FirstName, student.LastName)
	if err != nil {
		return 0, err
	}
	student.ID = id
	return id, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	people, err := selectPeople(ctx, r.db, r.sb, "students", squirrel.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, apperrors.NewResourceNotFoundError("student not found")
	}
	return toStudent(people[0]), nil
}

func (r *StudentRepository) List(ctx context.Context) ([]*models.Student, error) {
	people, err := selectPeople(ctx, r.db, r.sb, "students", nil)
	if err != nil {
		return nil, err
	}
	students := make([]*models.Student, 0, len(people))
	for _, p := range people {
		students = append(students, toStudent(p))
	}
	return students, nil
}

func (r *StudentRepository) Update(ctx context.Context, id int64, update models.PersonUpdate) error {
	if update.Empty() {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return updatePerson(ctx, r.db, r.sb, "students", id, update, "student not found")
}

// Delete removes a student with its enrollments and attendance records and
// clears the student link of any account.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	return db.InTx(ctx, r.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := execStatement(ctx, tx, r.sb.Delete("enrollments").Where(squirrel.Eq{"student_id": id}), "delete student enrollments"); err != nil {
			return err
		}
		if _, err := execStatement(ctx, tx, r.sb.Delete("attendance_records").Where(squirrel.Eq{"student_id": id}), "delete student attendance"); err != nil {
			return err
		}
		if _, err := execStatement(ctx, tx, r.sb.Update("accounts").Set("student_id", nil).Where(squirrel.Eq{"student_id": id}), "unlink student accounts"); err != nil {
			return err
		}
		n, err := execStatement(ctx, tx, r.sb.Delete("students").Where(squirrel.Eq{"id": id}), "delete student")
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.NewResourceNotFoundError("student not found")
		}
		return nil
	})
}
