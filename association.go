package entwine

import (
	"context"
	"fmt"
)

// SyncResult what a Sync changed on the pivot table.
type SyncResult struct {
	Attached []interface{}
	Detached []interface{}
}

func (r *BelongsToMany) requireParent() (interface{}, error) {
	if r.parent == nil || r.parent.Raw(r.parentKey) == nil {
		return nil, fmt.Errorf("%w: pivot mutation requires a persisted parent", ErrInvalidData)
	}
	return r.parent.Raw(r.parentKey), nil
}

// Attach link related keys to the parent by inserting pivot rows. Extra
// pivot attributes apply to every inserted row.
func (r *BelongsToMany) Attach(ctx context.Context, relatedKeys []interface{}, pivotAttrs ...map[string]interface{}) error {
	parentKey, err := r.requireParent()
	if err != nil {
		return err
	}
	if len(relatedKeys) == 0 {
		return nil
	}

	extra := mergeAttrs(nil, pivotAttrs...)
	rows := make([]map[string]interface{}, len(relatedKeys))
	for i, key := range relatedKeys {
		row := map[string]interface{}{
			r.foreignPivotKey: parentKey,
			r.relatedPivotKey: key,
		}
		for k, v := range extra {
			row[k] = v
		}
		if r.pivotTimestamps {
			now := r.db.NowFunc()
			row["created_at"] = now
			row["updated_at"] = now
		}
		rows[i] = row
	}

	_, err = r.db.Table(r.pivotTable).Insert(ctx, rows...)
	return err
}

// Detach unlink the given related keys, or every link when none are given.
// Returns the number of removed pivot rows.
func (r *BelongsToMany) Detach(ctx context.Context, relatedKeys ...interface{}) (int64, error) {
	parentKey, err := r.requireParent()
	if err != nil {
		return 0, err
	}

	q := r.db.Table(r.pivotTable).Where(r.foreignPivotKey, parentKey)
	if len(relatedKeys) > 0 {
		q.WhereIn(r.relatedPivotKey, relatedKeys...)
	}
	return q.Delete(ctx)
}

// UpdatePivot rewrite the extra pivot attributes of one existing link
func (r *BelongsToMany) UpdatePivot(ctx context.Context, relatedKey interface{}, attrs map[string]interface{}) (int64, error) {
	parentKey, err := r.requireParent()
	if err != nil {
		return 0, err
	}

	values := mergeAttrs(attrs)
	if r.pivotTimestamps {
		values["updated_at"] = r.db.NowFunc()
	}
	return r.db.Table(r.pivotTable).
		Where(r.foreignPivotKey, parentKey).
		Where(r.relatedPivotKey, relatedKey).
		updateRaw(ctx, values)
}

// currentKeys the related keys currently linked to the parent
func (r *BelongsToMany) currentKeys(ctx context.Context) ([]interface{}, error) {
	parentKey, err := r.requireParent()
	if err != nil {
		return nil, err
	}
	return r.db.Table(r.pivotTable).
		Where(r.foreignPivotKey, parentKey).
		Pluck(ctx, r.relatedPivotKey)
}

// Sync make the pivot rows match relatedKeys exactly: missing links are
// attached, surplus links detached, existing links left alone.
func (r *BelongsToMany) Sync(ctx context.Context, relatedKeys []interface{}, pivotAttrs ...map[string]interface{}) (SyncResult, error) {
	var result SyncResult

	current, err := r.currentKeys(ctx)
	if err != nil {
		return result, err
	}

	have := map[string]interface{}{}
	for _, key := range current {
		have[groupKey(key)] = key
	}
	want := map[string]struct{}{}
	for _, key := range relatedKeys {
		k := groupKey(key)
		want[k] = struct{}{}
		if _, ok := have[k]; !ok {
			result.Attached = append(result.Attached, key)
		}
	}
	for k, key := range have {
		if _, ok := want[k]; !ok {
			result.Detached = append(result.Detached, key)
		}
	}

	if len(result.Detached) > 0 {
		if _, err := r.Detach(ctx, result.Detached...); err != nil {
			return result, err
		}
	}
	if len(result.Attached) > 0 {
		if err := r.Attach(ctx, result.Attached, pivotAttrs...); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Toggle attach the keys that are absent and detach the ones that are
// present.
func (r *BelongsToMany) Toggle(ctx context.Context, relatedKeys []interface{}) (SyncResult, error) {
	var result SyncResult

	current, err := r.currentKeys(ctx)
	if err != nil {
		return result, err
	}

	have := map[string]struct{}{}
	for _, key := range current {
		have[groupKey(key)] = struct{}{}
	}
	for _, key := range relatedKeys {
		if _, ok := have[groupKey(key)]; ok {
			result.Detached = append(result.Detached, key)
		} else {
			result.Attached = append(result.Attached, key)
		}
	}

	if len(result.Detached) > 0 {
		if _, err := r.Detach(ctx, result.Detached...); err != nil {
			return result, err
		}
	}
	if len(result.Attached) > 0 {
		if err := r.Attach(ctx, result.Attached); err != nil {
			return result, err
		}
	}
	return result, nil
}
