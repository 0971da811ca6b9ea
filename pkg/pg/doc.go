// Package pg wires PostgreSQL through github.com/jackc/pgx/v5.
//
// Connect opens a pgxpool.Pool with retries, Migrate and MigrateFS apply goose
// migrations, and Transactor implements txn.Transactor on top of the pool.
// Stores obtain the connection to use with Conn: inside WithinTx it is the
// open pgx.Tx, otherwise the pool itself.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	tx := pg.NewTransactor(pool)
//	err = tx.WithinTx(ctx, func(ctx context.Context) error {
//		_, err := pg.Conn(ctx, pool).Exec(ctx, `UPDATE ...`)
//		return err
//	})
package pg
