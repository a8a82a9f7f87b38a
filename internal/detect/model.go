package detect

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/xela07ax/phishguard-console/internal/domain"
)

// Модель бустинга в родном JSON-формате XGBoost. Тренировка вне нашей
// зоны: файл кладет рядом пайплайн обучения, мы его только читаем.
type xgbFile struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		GradientBooster struct {
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore string `json:"base_score"`
		} `json:"learner_model_param"`
	} `json:"learner"`
}

// Одно дерево: плоские массивы узлов. Лист — узел с left_children[i] == -1,
// его значение лежит в split_conditions[i].
type xgbTree struct {
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	DefaultLeft     []int     `json:"default_left"`
}

// Model — загруженный бустинг с бинарно-логистической головой.
type Model struct {
	trees     []xgbTree
	baseScore float64
	// Маппинг позиций: имя признака модели -> индекс в нашем векторе
	featureOrder []int
}

// LoadModel читает модель с диска. Ошибку интерпретирует вызывающий:
// движок при любой проблеме откатывается на правиловый скоринг.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: read %s: %w", path, err)
	}

	var file xgbFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("model: parse %s: %w", path, err)
	}

	trees := file.Learner.GradientBooster.Model.Trees
	if len(trees) == 0 {
		return nil, fmt.Errorf("model: %s contains no trees", path)
	}
	for i, t := range trees {
		n := len(t.LeftChildren)
		if len(t.RightChildren) != n || len(t.SplitIndices) != n ||
			len(t.SplitConditions) != n || len(t.DefaultLeft) != n {
			return nil, fmt.Errorf("model: tree %d has inconsistent node arrays", i)
		}
	}

	baseScore := 0.5
	if s := file.Learner.LearnerModelParam.BaseScore; s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			baseScore = v
		}
	}

	m := &Model{trees: trees, baseScore: baseScore}

	// Вектор признаков подаем в том порядке, в котором модель обучалась
	if names := file.Learner.FeatureNames; len(names) > 0 {
		m.featureOrder = make([]int, 0, len(names))
		for _, name := range names {
			idx := -1
			for i, known := range featureNames {
				if known == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("model: unknown feature %q", name)
			}
			m.featureOrder = append(m.featureOrder, idx)
		}
	}

	return m, nil
}

// Predict возвращает вероятность фишинга: сумма листьев всех деревьев
// плюс logit(base_score), через сигмоиду.
func (m *Model) Predict(f Features) (float64, error) {
	x := f.Vector()
	if m.featureOrder != nil {
		reordered := make([]float64, len(m.featureOrder))
		for i, idx := range m.featureOrder {
			reordered[i] = x[idx]
		}
		x = reordered
	}

	margin := math.Log(m.baseScore / (1 - m.baseScore))
	for ti := range m.trees {
		leaf, err := m.trees[ti].walk(x)
		if err != nil {
			return 0, fmt.Errorf("model: tree %d: %w", ti, err)
		}
		margin += leaf
	}

	return 1 / (1 + math.Exp(-margin)), nil
}

func (t *xgbTree) walk(x []float64) (float64, error) {
	node := 0
	for steps := 0; steps <= len(t.LeftChildren); steps++ {
		if node < 0 || node >= len(t.LeftChildren) {
			return 0, fmt.Errorf("node index %d out of range", node)
		}
		if t.LeftChildren[node] == -1 {
			return t.SplitConditions[node], nil
		}

		idx := t.SplitIndices[node]
		if idx < 0 || idx >= len(x) {
			return 0, fmt.Errorf("split index %d out of range", idx)
		}

		v := x[idx]
		switch {
		case math.IsNaN(v):
			// Пропущенное значение уходит в сторону по умолчанию
			if t.DefaultLeft[node] != 0 {
				node = t.LeftChildren[node]
			} else {
				node = t.RightChildren[node]
			}
		case v < t.SplitConditions[node]:
			node = t.LeftChildren[node]
		default:
			node = t.RightChildren[node]
		}
	}
	return 0, fmt.Errorf("cycle detected")
}

// MapVerdict переводит вероятность в вердикт. Пороги консервативные:
// фишинг только при p > 0.7, неуверенная зона 0.3-0.7 трактуется как
// Safe с пониженной уверенностью.
func MapVerdict(p float64) (domain.ScanLabel, float64, int) {
	risk := int(p * 100)
	switch {
	case p > 0.7:
		return domain.LabelPhishing, p * 100, risk
	case p > 0.3:
		return domain.LabelSafe, (1 - p) * 85, risk
	default:
		return domain.LabelSafe, (1 - p) * 100, risk
	}
}
